package models

import (
	"time"

	"github.com/google/uuid"
)

// Scoring methods reported on ConsistencyAssessment.
const (
	ScoringMethodEmbedding = "embedding"
	ScoringMethodHistogram = "histogram"
)

// ConsistencyAssessment is the outcome of comparing a generated image against a
// character's reference set.
type ConsistencyAssessment struct {
	ImageID     string    `json:"image_id"`
	CharacterID uuid.UUID `json:"character_id"`
	Score       float64   `json:"score"` // always within [0,1]
	Passed      bool      `json:"passed"`
	Method      string    `json:"method"`
	Error       string    `json:"error,omitempty"` // non-fatal annotation, e.g. decode failure
	AssessedAt  time.Time `json:"assessed_at"`
}

// IntentCategory classifies the subject composition implied by a prompt.
type IntentCategory string

const (
	IntentSolo       IntentCategory = "solo"
	IntentMultiple   IntentCategory = "multiple"
	IntentConflicted IntentCategory = "conflicted"
	IntentUnclear    IntentCategory = "unclear"
)

// PromptIntent is the inferred expected composition for a generation prompt.
// Parsing is pure: the same prompt text always yields the same PromptIntent.
type PromptIntent struct {
	Category          IntentCategory `json:"category"`
	ExpectedCount     int            `json:"expected_count"`
	Confidence        float64        `json:"confidence"`
	MatchedIndicators []string       `json:"matched_indicators,omitempty"`
}

// Region is a detected subject bounding box in image coordinates.
type Region struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Kind       string  `json:"kind,omitempty"` // "face" or "body"
}

// CompositionResult is the outcome of checking detected subjects against the
// parsed prompt intent.
type CompositionResult struct {
	DetectedCount int          `json:"detected_count"`
	Passed        bool         `json:"passed"`
	Reason        string       `json:"reason,omitempty"`
	NeedsReview   bool         `json:"needs_review"` // conflicted intents are always flagged
	Regions       []Region     `json:"regions,omitempty"`
	Intent        PromptIntent `json:"intent"`
	Error         string       `json:"error,omitempty"` // non-fatal annotation
}
