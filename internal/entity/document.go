package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/constants"
)

// Document represents an uploaded clinical PDF for data transfer between layers.
type Document struct {
	ID            uuid.UUID                  `json:"id"`
	PatientID     uuid.UUID                  `json:"patient_id"`
	Filename      string                     `json:"filename"`
	StoragePath   string                     `json:"storage_path"`
	ContentType   string                     `json:"content_type"`
	SizeBytes     int64                      `json:"size_bytes"`
	ContentHash   []byte                     `json:"content_hash,omitempty"`
	Status        constants.ProcessingStatus `json:"status"`
	ExtractedText *string                    `json:"extracted_text,omitempty"`
	ProcessedAt   *time.Time                 `json:"processed_at,omitempty"`
	UploadedAt    time.Time                  `json:"uploaded_at"`
}
