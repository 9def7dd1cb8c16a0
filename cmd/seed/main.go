package main

import (
	"context"

	"github.com/joho/godotenv"

	"glow-storefront/internal/config"
	"glow-storefront/internal/db"
	"glow-storefront/internal/logging"
	productrepo "glow-storefront/internal/repository/product"
	"glow-storefront/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).WithField("app", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger))
	if err != nil {
		logger.WithError(err).Fatal("seed apply")
	}

	logger.WithField("products", n).Info("seed applied")
}
