//go:build !gosseract

package ocr

import (
	"fmt"
	"log/slog"
)

func newGosseractEngine(_ *slog.Logger) (Engine, error) {
	return nil, fmt.Errorf("gosseract engine requires building with -tags gosseract")
}
