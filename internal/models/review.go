package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback categories that justify an automatic regeneration when attached to a
// rejection. Anything else is informational only.
const (
	FeedbackBadQuality          = "bad_quality"
	FeedbackWrongCharacter      = "wrong_character"
	FeedbackCompositionMismatch = "composition_mismatch"
	FeedbackAnatomyError        = "anatomy_error"
)

// VerdictFeedback carries the reviewer's categorised reason for a rejection.
type VerdictFeedback struct {
	Category string `json:"category"`
	Reason   string `json:"reason,omitempty"`
}

// ReviewVerdict is an append-only approve/reject decision for a generated artifact.
type ReviewVerdict struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ImageID     string    `json:"image_id" db:"image_id"`
	CharacterID uuid.UUID `json:"character_id" db:"character_id"`
	Approved    bool      `json:"approved" db:"approved"`
	Category    string    `json:"category,omitempty" db:"category"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// GenerationOutcome links an artifact to the generation settings that produced
// it and to its review result. Rows are append-only history for the learner.
type GenerationOutcome struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ImageID     string    `json:"image_id" db:"image_id"`
	CharacterID uuid.UUID `json:"character_id" db:"character_id"`
	Sampler     string    `json:"sampler" db:"sampler"`
	CFGScale    float64   `json:"cfg_scale" db:"cfg_scale"`
	Steps       int       `json:"steps" db:"steps"`
	Seed        int64     `json:"seed" db:"seed"`
	Quality     float64   `json:"quality" db:"quality"`
	Approved    bool      `json:"approved" db:"approved"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ParamSuggestion aggregates historically successful settings for a character.
// It is derived on demand and never persisted.
type ParamSuggestion struct {
	CharacterID uuid.UUID `json:"character_id"`
	Sampler     string    `json:"sampler"`
	CFGScale    float64   `json:"cfg_scale"`
	Steps       int       `json:"steps"`
	SampleSize  int       `json:"sample_size"`
	Confidence  float64   `json:"confidence"`
}

// RejectionPattern is one rejection category with its occurrence count.
type RejectionPattern struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// QualityPoint is one day of the trailing quality trend.
type QualityPoint struct {
	Date       time.Time `json:"date"`
	AvgQuality float64   `json:"avg_quality"`
	Count      int       `json:"count"`
}
