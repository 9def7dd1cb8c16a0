package main

import (
	"context"

	"github.com/joho/godotenv"

	"glow-storefront/internal/config"
	"glow-storefront/internal/db"
	"glow-storefront/internal/logging"
	"glow-storefront/internal/migrate"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).WithField("app", "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.WithError(err).Fatal("read schema version")
	}
	logger.WithField("version", version).WithField("dirty", dirty).Info("migrations applied")
}
