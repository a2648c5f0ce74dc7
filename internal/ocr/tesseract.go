package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// TesseractConfig tunes the exec tesseract engine.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string

	PSM int // e.g. 6 is good for a uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// TSVConfidence enables a second tesseract pass in TSV mode to
	// compute the mean word confidence.
	TSVConfidence bool
}

// TesseractEngine recognizes page images by shelling out to tesseract.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractEngine {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

// Recognize writes the image to a scratch file and runs tesseract on it.
// tesseract only reads paths, so bytes take a detour through the disk.
func (t *TesseractEngine) Recognize(ctx context.Context, image []byte, lang string) (Recognition, error) {
	if lang == "" {
		lang = "eng"
	}

	f, err := os.CreateTemp("", "medx-ocr-*.png")
	if err != nil {
		return Recognition{}, fmt.Errorf("scratch image: %w", err)
	}
	path := f.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil {
			t.logger.Warn("ocr.scratch.remove_failed", "path", path, "error", rerr)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return Recognition{}, fmt.Errorf("write scratch image: %w", err)
	}
	if err := f.Close(); err != nil {
		return Recognition{}, fmt.Errorf("close scratch image: %w", err)
	}

	args := []string{path, "stdout", "-l", lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w (stderr: %s)", err, truncate(string(errb), 512))
	}

	rec := Recognition{Text: string(out)}
	if t.cfg.TSVConfidence {
		if conf, cerr := t.tsvConfidence(ctx, path, lang); cerr == nil {
			rec.MeanConfidence = conf
		} else {
			t.logger.Warn("ocr.tsv_confidence.failed", "error", cerr)
		}
	}
	return rec, nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *TesseractEngine) tsvConfidence(ctx context.Context, path, lang string) (float32, error) {
	args := []string{path, "stdout", "-l", lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w (stderr: %s)", err, truncate(string(errb), 512))
	}

	lines := strings.Split(string(out), "\n")
	// 12 columns: level..height, conf (index 10), text (last)
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, perr := strconv.ParseFloat(confStr, 64); perr == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0), nil
}
