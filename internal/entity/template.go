package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/constants"
)

// DiseaseTemplate defines a disease's keyword vocabulary and the typed
// fields to extract when a document matches it. Immutable during a
// processing run; only the template admin service mutates it.
type DiseaseTemplate struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Keywords  []string    `json:"keywords"`
	Fields    []FieldSpec `json:"fields"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// FieldSpec declares one extractable field of a template.
type FieldSpec struct {
	Name     string              `json:"name"`
	Type     constants.FieldType `json:"type"`
	Required bool                `json:"required"`
	// Pattern is an optional regular expression; its first capture group
	// (or the whole match when it has none) is the candidate value.
	Pattern string `json:"pattern,omitempty"`
}
