package ocr

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine names accepted by NewEngine.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// Recognition is one page's worth of recognized text. MeanConfidence is
// advisory (0 when the engine cannot report one) and never drives
// control flow.
type Recognition struct {
	Text           string
	MeanConfidence float32
}

// Engine recognizes text in a single rasterized page image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, lang string) (Recognition, error)
}

// NewEngine selects a recognition engine by name. The empty name picks
// the exec tesseract engine.
func NewEngine(engineType string, cfg TesseractConfig, logger *slog.Logger) (Engine, error) {
	switch engineType {
	case EngineTesseract, "":
		return NewTesseractEngine(cfg, ExecRunner{}, logger), nil
	case EngineGosseract:
		return newGosseractEngine(logger)
	default:
		return nil, fmt.Errorf("unknown ocr engine: %q", engineType)
	}
}
