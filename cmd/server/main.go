package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medipos/backend/internal/cache"
	"medipos/backend/internal/config"
	"medipos/backend/internal/currency"
	"medipos/backend/internal/httpapi"
	"medipos/backend/internal/service"
	"medipos/backend/internal/store"
	"medipos/backend/internal/store/memory"
	pgstore "medipos/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if len(cfg.AuthSecret) < 32 {
		logger.Fatal("AUTH_SECRET must be set and at least 32 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.RunMigrations(cfg.MigrationsDir); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	kv := cache.KV(cache.NewMemoryKV())
	if cfg.RedisAddr != "" {
		redisKV := cache.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisKV.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
		} else {
			kv = redisKV
			closers = append(closers, redisKV.Close)
			logger.Info("cache: redis")
		}
	} else {
		logger.Info("cache: in-process")
	}

	svc := service.New(repo, kv, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.TokenTTL(), repo)
	rates := currency.New(kv, logger, cfg.MetalAPIKey, cfg.CurrencyTTL())
	api := httpapi.New(svc, auth, rates, logger, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}
