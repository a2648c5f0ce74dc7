package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinovia/medextract/internal/config"
	"github.com/clinovia/medextract/internal/fields"
	"github.com/clinovia/medextract/internal/match"
	"github.com/clinovia/medextract/internal/ocr"
	"github.com/clinovia/medextract/internal/pipeline"
	"github.com/clinovia/medextract/internal/queue"
	"github.com/clinovia/medextract/internal/repository"
	"github.com/clinovia/medextract/internal/runlock"
	"github.com/clinovia/medextract/internal/storage"
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
		MaxConns:        int32(cfg.WorkerConcurrency * 2),
		MinConns:        1,
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	store, err := storage.NewDiskStore(cfg.StorageRoot, logger)
	if err != nil {
		logger.Error("failed to open document storage", "root", cfg.StorageRoot, "error", err)
		os.Exit(1)
	}

	pipe, err := buildPipeline(cfg, pool, rdb, store, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Logger:      asynqLogger{logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDocumentExtract, queue.NewExtractHandler(pipe, logger))

	logger.Info("starting worker", "concurrency", cfg.WorkerConcurrency, "ocr_engine", cfg.OCREngine)
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func buildPipeline(
	cfg *config.Config,
	pool *pgxpool.Pool,
	rdb *redis.Client,
	store *storage.DiskStore,
	logger *slog.Logger,
) (*pipeline.Pipeline, error) {
	engine, err := ocr.NewEngine(cfg.OCREngine, ocr.TesseractConfig{
		Binary:        cfg.Tesseract,
		TSVConfidence: true,
	}, logger)
	if err != nil {
		return nil, err
	}
	ocrExtractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.Pdftoppm,
		Language: cfg.OCRLanguage,
		DPI:      cfg.OCRDPI,
		MaxPages: cfg.OCRMaxPages,
	}, engine, nil, logger)

	return pipeline.New(
		logger,
		repository.NewDocumentRepository(pool, logger),
		repository.NewTemplateRepository(pool, logger),
		repository.NewRecordRepository(pool, logger),
		store,
		ocrExtractor,
		match.NewMatcher(cfg.MatchThreshold, logger),
		fields.NewExtractor(logger),
		runlock.NewRedisLocker(rdb, runlock.DefaultTTL),
	), nil
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

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	l *slog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
