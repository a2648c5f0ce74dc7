package constants

import "strings"

// PDFClass is the detected content class of an uploaded PDF.
type PDFClass string

const (
	// PDFClassText marks documents with a usable embedded text layer.
	PDFClassText PDFClass = "text"
	// PDFClassImage marks scanned documents that need rasterization + OCR.
	PDFClassImage PDFClass = "image"
)

// AllowedExtensions holds the file extensions accepted at upload.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// AllowedContentTypes holds the MIME types accepted at upload.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
