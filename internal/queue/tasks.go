// Package queue enqueues and handles background extraction tasks.
package queue

const (
	// TypeDocumentExtract runs the extraction pipeline for one document.
	TypeDocumentExtract = "document:extract"
)

type DocumentExtractPayload struct {
	DocumentID string `json:"document_id"`
}
