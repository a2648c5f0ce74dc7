//go:build gosseract

package ocr

import (
	"context"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// gosseractEngine recognizes page images in-process through the CGO
// tesseract binding. Selected with -tags gosseract and ocr.engine=gosseract.
type gosseractEngine struct {
	logger *slog.Logger
}

func newGosseractEngine(logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &gosseractEngine{logger: logger}, nil
}

func (g *gosseractEngine) Recognize(ctx context.Context, image []byte, lang string) (Recognition, error) {
	if lang == "" {
		lang = "eng"
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(lang); err != nil {
		return Recognition{}, err
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return Recognition{}, err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return Recognition{}, err
	}

	text, err := client.Text()
	if err != nil {
		return Recognition{}, err
	}
	// the binding does not expose word confidences; advisory zero
	return Recognition{Text: text}, nil
}
