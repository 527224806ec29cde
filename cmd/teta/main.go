package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/teta/cmd/teta/db"
	"github.com/andrebq/teta/cmd/teta/serve"
	"github.com/andrebq/teta/cmd/teta/users"
	"github.com/andrebq/teta/internal/cmdflags"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	logLevel := "info"
	logConsole := false
	app := &cli.App{
		Name:  "teta",
		Usage: "Teaching web service to practice HTTP request scripting",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&logLevel),
			cmdflags.LogConsole(&logConsole),
		},
		Before: func(ctx *cli.Context) error {
			logger, err := logutil.New(os.Stderr, logLevel, logConsole)
			if err != nil {
				return err
			}
			log.Logger = logger
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			db.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
