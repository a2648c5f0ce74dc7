package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinovia/medextract/internal/config"
	"github.com/clinovia/medextract/internal/export"
	"github.com/clinovia/medextract/internal/queue"
	"github.com/clinovia/medextract/internal/repository"
	"github.com/clinovia/medextract/internal/server"
	"github.com/clinovia/medextract/internal/storage"
	"github.com/clinovia/medextract/internal/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.DatabaseURL,
		MaxConns:        20,
		MinConns:        5,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(ctx, pool, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Enqueue and locks fail per request until redis comes back.
		logger.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	store, err := storage.NewDiskStore(cfg.StorageRoot, logger)
	if err != nil {
		logger.Error("failed to open document storage", "root", cfg.StorageRoot, "error", err)
		os.Exit(1)
	}

	patientRepo := repository.NewPatientRepository(pool, logger)
	documentRepo := repository.NewDocumentRepository(pool, logger)
	recordRepo := repository.NewRecordRepository(pool, logger)
	templateRepo := repository.NewTemplateRepository(pool, logger)

	templateSvc := templates.NewService(templateRepo, logger)
	if cfg.SeedTemplates != "" {
		n, err := templateSvc.Seed(ctx, cfg.SeedTemplates)
		if err != nil {
			logger.Error("failed to seed templates", "path", cfg.SeedTemplates, "error", err)
			os.Exit(1)
		}
		logger.Info("templates seeded", "path", cfg.SeedTemplates, "count", n)
	}

	tasks := queue.NewClient(queue.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if cerr := tasks.Close(); cerr != nil {
			logger.Error("close queue client", "error", cerr)
		}
	}()

	api := server.New(server.Deps{
		Pool:      pool,
		Redis:     rdb,
		Patients:  patientRepo,
		Documents: documentRepo,
		Records:   recordRepo,
		Templates: templateSvc,
		Exporter:  export.NewService(recordRepo, logger),
		Store:     store,
		Tasks:     tasks,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting API server", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
