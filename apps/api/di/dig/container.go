package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/college/apps/api/echo"
	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/stats"
	"github.com/trezcool/college/core/user"
	appfs "github.com/trezcool/college/fs"
	emailsvc "github.com/trezcool/college/services/email"
	filesvc "github.com/trezcool/college/services/files"
	logsvc "github.com/trezcool/college/services/logger"
	"github.com/trezcool/college/storage/database"
	inmemdb "github.com/trezcool/college/storage/database/inmem"
	sqlxrepos "github.com/trezcool/college/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by the configured database engine.
	Repositories struct {
		dig.Out
		Users   user.Repository
		Fees    fee.Repository
		Notices notice.Repository
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB returns a nil *sqlx.DB for the memory engine.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Database.Engine == core.EngineMemory {
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(conf *core.Config, db *sqlx.DB) Repositories {
	if conf.Database.Engine == core.EngineMemory {
		mem := inmemdb.Open()
		return Repositories{
			Users:   inmemdb.NewUserRepository(mem),
			Fees:    inmemdb.NewFeeRepository(mem),
			Notices: inmemdb.NewNoticeRepository(mem),
		}
	}
	return Repositories{
		Users:   sqlxrepos.NewUserRepository(db),
		Fees:    sqlxrepos.NewFeeRepository(db),
		Notices: sqlxrepos.NewNoticeRepository(db),
	}
}

func newEmailTemplates(conf *core.Config, logger core.Logger) *core.EmailTemplates {
	tmpls, err := core.ParseEmailTemplates(appfs.FS, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	return tmpls
}

func newEmailService(conf *core.Config, templates *core.EmailTemplates, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, templates, logger)
	}
	return emailsvc.NewSendgridService(conf, templates, logger)
}

func newFileStorage(conf *core.Config, logger core.Logger) core.FileStorage {
	var (
		storage core.FileStorage
		err     error
	)
	switch conf.Uploads.Backend {
	case core.UploadsS3:
		storage, err = filesvc.NewS3Storage(context.Background(), conf)
	default:
		storage, err = filesvc.NewLocalStorage(conf)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s uploads: %v", conf.Uploads.Backend, err), err)
	}
	return storage
}

func newServerOptions(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	files core.FileStorage,
	usrSvc *user.Service,
	feeSvc *fee.Service,
	noticeSvc *notice.Service,
	statsSvc *stats.Service,
) *echoapi.Options {
	return &echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Translator: translator,
		Files:      files,
		UserSvc:    usrSvc,
		FeeSvc:     feeSvc,
		NoticeSvc:  noticeSvc,
		StatsSvc:   statsSvc,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailTemplates))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStorage))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(fee.NewService))
	must(c.Provide(notice.NewService))
	must(c.Provide(stats.NewService))
	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
