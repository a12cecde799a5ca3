package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/custodia-systems/welfare-canteen-api/api/swagger"
	"github.com/custodia-systems/welfare-canteen-api/internal/router"
	"github.com/custodia-systems/welfare-canteen-api/pkg/cache"
	"github.com/custodia-systems/welfare-canteen-api/pkg/config"
	"github.com/custodia-systems/welfare-canteen-api/pkg/database"
	"github.com/custodia-systems/welfare-canteen-api/pkg/logger"
)

// @title Welfare Canteen API
// @version 1.0.0
// @description Role-based admin system for inmate welfare accounts and the facility tuck-shop
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and sessions degraded", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := router.NewServer(cfg, db, redisClient, logr)
	if srv.Backup != nil {
		if err := srv.Backup.Start(ctx); err != nil {
			logr.Sugar().Warnw("backup scheduler not started", "error", err)
		}
		defer srv.Backup.Stop()
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
