package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/api"
	"storefront-api/internal/catalog"
	"storefront-api/internal/config"
	"storefront-api/internal/obs"
	"storefront-api/internal/store"
	"storefront-api/pkg/persist"
)

func main() {
	cfg := config.Load()

	logger, err := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, backend := newPersister(ctx, cfg, logger)

	client := catalog.NewClient(catalog.Options{
		BaseURL:   cfg.CatalogBaseURL,
		PageLimit: cfg.CatalogPageLimit,
		Timeout:   cfg.CatalogTimeout,
		Rate:      cfg.CatalogRate,
		Burst:     cfg.CatalogBurst,
	}, logger)

	s := store.New(ctx, client, p, logger)

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.CatalogTimeout)
	s.FetchCategories(fetchCtx)
	cancel()
	s.RefreshCatalog()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(s, logger, api.Options{
			Backend:         backend,
			RateLimitPerSec: cfg.RateLimitPerSec,
			RateLimitBurst:  cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("storefront api starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("persist", backend),
			zap.String("catalog", cfg.CatalogBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := s.Close(shutdownCtx); err != nil {
		logger.Error("store close", zap.Error(err))
	}
	logger.Info("bye")
}

// newPersister opens the configured backend. An unreachable redis falls back
// to memory so the api still serves, just without durable carts.
func newPersister(ctx context.Context, cfg config.Config, logger *zap.Logger) (persist.Persister, string) {
	switch cfg.PersistBackend {
	case "memory":
		return persist.NewMemory(nil), "memory"
	case "redis":
		r, err := persist.NewRedis(ctx, persist.RedisConfig{
			URL: cfg.RedisURL,
			DB:  cfg.RedisDB,
			Key: cfg.StoreKey,
			TTL: cfg.PersistTTL,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to memory", zap.Error(err))
			return persist.NewMemory(nil), "memory"
		}
		return r, "redis"
	default:
		if cfg.PersistBackend != "sqlite" {
			logger.Warn("unknown persist backend, using sqlite", zap.String("backend", cfg.PersistBackend))
		}
		sq, err := persist.NewSQLite(cfg.SQLitePath, cfg.StoreKey, logger)
		if err != nil {
			logger.Warn("sqlite unavailable, falling back to memory", zap.Error(err))
			return persist.NewMemory(nil), "memory"
		}
		return sq, "sqlite"
	}
}
