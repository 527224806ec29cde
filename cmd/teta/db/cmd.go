package db

import (
	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/cmdflags"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	database := "teta.db"
	return &cli.Command{
		Name:  "db",
		Usage: "Credential store maintenance",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
		},
		Subcommands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Create or upgrade the schema (serve does it on startup too)",
				Action: func(ctx *cli.Context) error {
					store, err := credstore.Open(ctx.Context, database)
					if err != nil {
						return err
					}
					defer store.Close()
					err = store.Migrate(ctx.Context)
					if err != nil {
						return err
					}
					n, err := store.CountUsers(ctx.Context)
					if err != nil {
						return err
					}
					log := logutil.GetOrDefault(ctx.Context)
					log.Info().Str("dialect", string(store.Dialect())).Int64("users", n).Msg("Schema is up to date")
					return nil
				},
			},
		},
	}
}
