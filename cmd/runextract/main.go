// runextract runs the extraction pipeline synchronously for one or more
// document ids, bypassing the queue. Useful for reprocessing and local
// debugging.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/clinovia/medextract/internal/config"
	"github.com/clinovia/medextract/internal/fields"
	"github.com/clinovia/medextract/internal/match"
	"github.com/clinovia/medextract/internal/ocr"
	"github.com/clinovia/medextract/internal/pipeline"
	"github.com/clinovia/medextract/internal/repository"
	"github.com/clinovia/medextract/internal/runlock"
	"github.com/clinovia/medextract/internal/storage"
)

const runTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// keep output readable on a terminal
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	args := pflag.Args()
	if len(args) == 0 {
		logger.Error("usage", "cmd", "runextract <document-id-uuid> [<document-id-uuid>...]")
		os.Exit(2)
	}
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			logger.Error("invalid document id (must be UUID)", "arg", arg, "error", err)
			os.Exit(2)
		}
		ids = append(ids, id)
	}

	ctx := context.Background()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.DatabaseURL,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store, err := storage.NewDiskStore(cfg.StorageRoot, logger)
	if err != nil {
		logger.Error("open document storage", "root", cfg.StorageRoot, "error", err)
		os.Exit(1)
	}

	pipe, err := buildPipeline(cfg, pool, store, logger)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, id := range ids {
		if err := runOne(ctx, pipe, id, logger); err != nil {
			failed++
		}
	}
	if failed > 0 {
		logger.Error("some runs failed", "failed", failed, "total", len(ids))
		os.Exit(1)
	}
}

func runOne(ctx context.Context, pipe *pipeline.Pipeline, id uuid.UUID, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	res, err := pipe.Run(ctx, id)
	dur := time.Since(start)
	if err != nil {
		logger.Error("extraction failed",
			"document_id", id, "error", err, "duration_ms", dur.Milliseconds())
		return err
	}

	ok, skipped, failed := res.Summary.Counts()
	logger.Info("extraction OK",
		"document_id", id,
		"success", res.Success,
		"disease", res.DiseaseName,
		"confidence", res.Confidence,
		"units_ok", ok,
		"units_skipped", skipped,
		"units_failed", failed,
		"duration_ms", dur.Milliseconds(),
	)
	if !res.Success {
		logger.Info("no template matched", "document_id", id, "preview", res.TextPreview)
	}
	return nil
}

func buildPipeline(
	cfg *config.Config,
	pool *pgxpool.Pool,
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

	// Single process, so an in-memory lock is enough here.
	return pipeline.New(
		logger,
		repository.NewDocumentRepository(pool, logger),
		repository.NewTemplateRepository(pool, logger),
		repository.NewRecordRepository(pool, logger),
		store,
		ocrExtractor,
		match.NewMatcher(cfg.MatchThreshold, logger),
		fields.NewExtractor(logger),
		runlock.NewMemoryLocker(),
	), nil
}
