package main

import (
	"context"
	"log"

	"github.com/oXide0/simplicity/internal/seed"
	"github.com/oXide0/simplicity/pkg/config"
	"github.com/oXide0/simplicity/pkg/database"
	"github.com/oXide0/simplicity/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	if err := seed.Run(ctx, db, logr); err != nil {
		logr.Sugar().Fatalw("failed to seed database", "error", err)
	}
}
