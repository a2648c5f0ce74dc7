// Package pdftext classifies uploaded PDFs and pulls their embedded
// text layer.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
)

var errReaderPanic = errors.New("pdf reader panic")

// minTextYield is the trimmed-length floor below which a PDF is treated
// as a scanned document.
const minTextYield = 50

// Detection is the result of classifying one document.
type Detection struct {
	Class constants.PDFClass
	Text  string
	Pages int
}

// Detect extracts the embedded text layer and classifies the document.
// Bytes that cannot be parsed as a PDF at all fail with a
// TYPE_DETECTION error; a parsed PDF whose text layer blows up the
// reader fails with TEXT_EXTRACTION.
func Detect(data []byte) (Detection, error) {
	text, pages, err := extract(data)
	if errors.Is(err, errReaderPanic) {
		return Detection{}, common.NewTextExtractionError("pdf text layer unreadable", err)
	}
	if err != nil {
		return Detection{}, common.NewTypeDetectionError("unreadable pdf", err)
	}
	return Detection{Class: classify(text), Text: text, Pages: pages}, nil
}

func classify(text string) constants.PDFClass {
	if len(strings.TrimSpace(text)) < minTextYield {
		return constants.PDFClassImage
	}
	return constants.PDFClassText
}

// extract walks the page tree, skipping null pages and per-page
// GetPlainText failures so one bad page cannot abort the document.
// The reader panics on some malformed files, hence the recover guard.
func extract(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errReaderPanic, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}

	var buf strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}
	return buf.String(), pages, nil
}
