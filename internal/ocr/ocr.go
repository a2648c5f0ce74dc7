// Package ocr rasterizes scanned PDFs and recognizes their text one
// page at a time.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/outcome"
)

// DefaultMaxPages is the hard per-document page cap. Pages beyond it
// are skipped, not failed: a known scope limitation.
const DefaultMaxPages = 10

const pageBreakMarker = "\n\f\n"

// Config tunes rasterization and recognition.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	Language string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // default DefaultMaxPages
}

// Result carries the recognized text of one document.
type Result struct {
	Text       string
	Pages      int // pages recognized or attempted, after the cap
	Language   string
	Duration   time.Duration
	Confidence float32 // advisory mean over recognized pages, 0 if unknown
	Summary    outcome.Summary
}

// Extractor runs the OCR fallback for documents without a text layer.
type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	logger *slog.Logger
}

func NewExtractor(cfg Config, engine Engine, runner Runner, logger *slog.Logger) *Extractor {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, runner: runner, engine: engine, logger: logger}
}

// Extract rasterizes the PDF at path and recognizes each page image in
// order. Page failures are recorded and skipped; the run fails only
// when no page yields any text. Scratch images live in a temp dir
// removed on every exit path.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{Language: e.cfg.Language}

	tmpDir, err := os.MkdirTemp("", "medx-pp-*")
	if err != nil {
		return res, common.NewOCRExtractionError("scratch dir", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("ocr.scratch.remove_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return res, common.NewOCRExtractionError(
			fmt.Sprintf("rasterize: %s", truncate(string(errb), 512)), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...);
	// pdftoppm zero-pads page numbers, so the lexicographic order is
	// the page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return res, common.NewOCRExtractionError("pdftoppm produced no images", nil)
	}

	if len(matches) > e.cfg.MaxPages {
		for i := e.cfg.MaxPages; i < len(matches); i++ {
			res.Summary.Add(outcome.Skip(pageUnit(i+1), "beyond page cap"))
		}
		e.logger.Debug("ocr.pages.capped",
			"rendered", len(matches), "cap", e.cfg.MaxPages)
		matches = matches[:e.cfg.MaxPages]
	}

	var b strings.Builder
	var confSum float64
	var confN int
	for i, img := range matches {
		pageNo := i + 1
		rec, perr := e.recognizePage(ctx, img)
		if perr != nil {
			e.logger.Warn("ocr.page.skip", "page", pageNo, "error", perr)
			res.Summary.Add(outcome.Fail(pageUnit(pageNo), perr))
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageBreakMarker) // keep a clear page break marker
		}
		b.WriteString(rec.Text)
		if rec.MeanConfidence > 0 {
			confSum += float64(rec.MeanConfidence)
			confN++
		}
		res.Summary.Add(outcome.Ok(pageUnit(pageNo)))
	}

	res.Text = b.String()
	res.Pages = len(matches)
	res.Duration = time.Since(start)
	if confN > 0 {
		res.Confidence = float32(confSum / float64(confN))
	}

	if strings.TrimSpace(res.Text) == "" {
		return res, common.NewOCRExtractionError("no text recognized on any page", nil)
	}
	return res, nil
}

func (e *Extractor) recognizePage(ctx context.Context, imgPath string) (Recognition, error) {
	img, err := os.ReadFile(imgPath)
	if err != nil {
		return Recognition{}, fmt.Errorf("read page image: %w", err)
	}
	return e.engine.Recognize(ctx, img, e.cfg.Language)
}

func pageUnit(n int) string {
	return fmt.Sprintf("page %d", n)
}
