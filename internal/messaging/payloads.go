package messaging

import (
	"github.com/google/uuid"

	"consistency-server/internal/models"
)

// VerificationTaskPayload is the queue message asking the worker to verify a
// freshly generated artifact.
type VerificationTaskPayload struct {
	TaskID      string    `json:"taskId"`
	CharacterID uuid.UUID `json:"characterId"`
	ImageID     string    `json:"imageId"`
	ImagePath   string    `json:"imagePath"`
	Prompt      string    `json:"prompt"`
}

// VerificationStatus is the completion status of a verification task.
type VerificationStatus string

const (
	VerificationStatusPassed      VerificationStatus = "passed"
	VerificationStatusFailed      VerificationStatus = "failed"
	VerificationStatusNeedsReview VerificationStatus = "needs_review"
	VerificationStatusError       VerificationStatus = "error"
)

// VerificationResultPayload reports both checks back to the orchestrating
// service.
type VerificationResultPayload struct {
	TaskID       string                        `json:"taskId"`
	CharacterID  uuid.UUID                     `json:"characterId"`
	ImageID      string                        `json:"imageId"`
	Status       VerificationStatus            `json:"status"`
	Consistency  *models.ConsistencyAssessment `json:"consistency,omitempty"`
	Composition  *models.CompositionResult     `json:"composition,omitempty"`
	ErrorDetails *string                       `json:"errorDetails,omitempty"`
}

// RegenerationTaskPayload asks the render engine to produce a replacement for
// a rejected artifact. SuggestedParams seeds the retry with the character's
// best-known settings when the learner has enough history.
type RegenerationTaskPayload struct {
	TaskID          string                  `json:"taskId"`
	CharacterID     uuid.UUID               `json:"characterId"`
	SourceImageID   string                  `json:"sourceImageId"`
	Reason          string                  `json:"reason,omitempty"`
	SuggestedParams *models.ParamSuggestion `json:"suggestedParams,omitempty"`
}
