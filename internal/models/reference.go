package models

import (
	"time"

	"github.com/google/uuid"
)

// Reference is a single stored likeness for a character: the artifact path plus
// an optional embedding vector when the embedding backend produced one.
type Reference struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CharacterID uuid.UUID `json:"character_id" db:"character_id"`
	ImageID     string    `json:"image_id" db:"image_id"`
	ImagePath   string    `json:"image_path" db:"image_path"`
	Embedding   []float64 `json:"embedding,omitempty" db:"embedding"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CharacterReferenceSet is the bounded, oldest-first-evicted pool of references
// treated as ground truth for a character's visual identity.
type CharacterReferenceSet struct {
	CharacterID uuid.UUID   `json:"character_id"`
	References  []Reference `json:"references"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
