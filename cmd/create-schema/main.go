package main

import (
	"context"
	"log/slog"
	"os"

	"cyberlegal-backend/config"
	"cyberlegal-backend/logging"
	"cyberlegal-backend/repository"

	"github.com/urfave/cli/v2"
)

func main() {
	config.LoadDotEnv()

	app := &cli.App{
		Name:  "create-schema",
		Usage: "Create the case_records table and vector index",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "drop", Usage: "Drop the existing case_records table first"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

			ctx := context.Background()
			db, err := repository.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.CreateSchema(ctx, db, cfg.EmbeddingDimensions, c.Bool("drop")); err != nil {
				return err
			}
			slog.Info("case_records schema ready", "dimensions", cfg.EmbeddingDimensions)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("create-schema failed", "error", err)
		os.Exit(1)
	}
}
