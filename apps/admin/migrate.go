package main

import (
	"context"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/college/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	goose.SetBaseFS(database.Migrations())
	if err := goose.SetDialect(string(database.GooseDialect(cli.engine))); err != nil {
		return err
	}
	return gooseRunFunc(ctx, args[0], cli.db.DB, ".", args[1:]...)
}
