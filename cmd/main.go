// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/config"
	"github.com/Shivanand-hulikatti/poros/internal/database"
	"github.com/Shivanand-hulikatti/poros/internal/drift"
	"github.com/Shivanand-hulikatti/poros/internal/handler"
	"github.com/Shivanand-hulikatti/poros/internal/logger"
	"github.com/Shivanand-hulikatti/poros/internal/repository"
	"github.com/Shivanand-hulikatti/poros/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "poros")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var store repository.Store
	if cfg.Database.Enabled {
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.CreateSchema(ctx, pool); err != nil {
			return err
		}
		log.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
		store = repository.NewPostgresStore(pool)
	} else {
		log.Warn("DB_ENABLED=false, using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	// ── 2. Drift queue ────────────────────────────────────────────────────
	var queue service.DriftQueue
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr), zap.String("key", cfg.Redis.QueueKey))
		queue = drift.NewRedisQueue(client, cfg.Redis.QueueKey)
	} else {
		queue = drift.NewMemoryQueue()
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	registry := service.NewRegistry(store, queue, log)
	router := handler.NewRouter(handler.NewRegistryHandler(registry, log), log)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
