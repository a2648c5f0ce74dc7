package entity

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is the structured result of a successful extraction run.
// Created exactly once per successful match; the pipeline never mutates
// it afterwards. Verified is flipped only by the reviewer workflow.
type MedicalRecord struct {
	ID          uuid.UUID     `json:"id"`
	DocumentID  uuid.UUID     `json:"document_id"`
	PatientID   uuid.UUID     `json:"patient_id"`
	TemplateID  uuid.UUID     `json:"template_id"`
	DiseaseName string        `json:"disease_name"`
	Data        ExtractedData `json:"data"`
	Confidence  float64       `json:"confidence"`
	Verified    bool          `json:"verified"`
	CreatedAt   time.Time     `json:"created_at"`
}
