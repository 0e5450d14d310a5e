package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/app/migrate"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/config"
	"github.com/raj200501/WatchDog-datadog-local-stack/pkg/logger"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply, inspect or roll back the postgres schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "command",
				Usage: "migrate command (up|status|down)",
				Value: "up",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "command timeout",
				Value: time.Minute,
			},
			&cli.Int64Flag{
				Name:  "target",
				Usage: "target version for down command (optional)",
			},
		},
		Action: runMigrate,
	}
}

func runMigrate(parent context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return err
	}
	log := logger.New("migrate", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(parent, cmd.Duration("timeout"))
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("configure migration runner: %w", err)
	}

	switch command := cmd.String("command"); command {
	case "up":
		return runner.Ensure(ctx)
	case "status":
		return runner.Status(ctx)
	case "down":
		return runner.Down(ctx, cmd.Int64("target"))
	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
}
