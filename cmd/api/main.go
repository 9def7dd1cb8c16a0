package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"glow-storefront/internal/config"
	"glow-storefront/internal/db"
	"glow-storefront/internal/httpserver"
	"glow-storefront/internal/logging"
	"glow-storefront/internal/repository/kv"
	productrepo "glow-storefront/internal/repository/product"
	"glow-storefront/internal/seed"
	cartsvc "glow-storefront/internal/service/cart"
	"glow-storefront/internal/service/checkout"
	productsvc "glow-storefront/internal/service/product"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).WithField("app", "api")
	if logger.Logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.NeedsDB() {
		p, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.WithError(err).Fatal("connect to db")
		}
		defer p.Close()
		pool = p
	}

	catalog, err := buildCatalog(ctx, cfg, pool, logger)
	if err != nil {
		logger.WithError(err).Fatal("load catalog")
	}
	logger.WithField("products", catalog.Len()).Info("catalog loaded")

	store, closeStore, err := buildKV(ctx, cfg, pool)
	if err != nil {
		logger.WithError(err).Fatal("open cart storage")
	}
	defer closeStore()

	cart := cartsvc.New(store, catalog,
		cartsvc.WithStorageKey(cfg.CartStorageKey),
		cartsvc.WithLogger(logger),
		cartsvc.WithWriteTimeout(cfg.StorageWriteTimeout),
	)
	go cart.Restore(ctx)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Catalog:          catalog,
		Cart:             cart,
		Checkout:         checkout.New(cart, logger),
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
	if err := cart.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("cart writes not flushed")
	}
	logger.Info("server stopped")
}

func buildCatalog(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger logrus.FieldLogger) (*productsvc.Catalog, error) {
	switch cfg.CatalogSource {
	case config.CatalogPostgres:
		return productsvc.Load(ctx, productrepo.NewPostgres(pool, logger))
	case config.CatalogSeed:
		return productsvc.NewCatalog(seed.Products()), nil
	default:
		return nil, errors.New("unknown CATALOG_SOURCE " + cfg.CatalogSource)
	}
}

func buildKV(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (kv.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return kv.NewMemory(), func() {}, nil
	case config.StoragePostgres:
		return kv.NewPostgres(pool), func() {}, nil
	case config.StorageRedis:
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedis(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.New("unknown STORAGE_BACKEND " + cfg.StorageBackend)
	}
}
