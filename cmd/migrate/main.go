// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wegift/auth-service/internal/config"
	"github.com/wegift/auth-service/internal/repository/migrations"
	"github.com/wegift/auth-service/pkg/observability"
	"go.uber.org/zap"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	cfg, err := config.LoadMigration(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	switch direction {
	case "up":
		err = migrations.Up(cfg.Postgres.URL())
	case "down":
		err = migrations.Down(cfg.Postgres.URL())
	default:
		return fmt.Errorf("unknown direction %q, expected up or down", direction)
	}
	if err != nil {
		return err
	}

	logger.Info("migrations applied", zap.String("direction", direction), zap.String("database", cfg.Postgres.DBName))
	return nil
}
