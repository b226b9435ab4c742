package main

import (
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/user"
	"github.com/trezcool/college/storage/database"
	sqlxrepos "github.com/trezcool/college/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	if conf.Database.Engine == core.EngineMemory {
		logger.Fatal("the admin CLI needs a persistent database engine")
	}

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:     db,
		engine: conf.Database.Engine,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), validate, conf),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if !errors.Is(err, errHelp) {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
