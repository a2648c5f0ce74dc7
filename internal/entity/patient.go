package entity

import (
	"time"

	"github.com/google/uuid"
)

// Patient represents a patient for data transfer between layers.
type Patient struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	ExternalID *string   `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
