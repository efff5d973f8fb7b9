package interfaces

import (
	"context"

	"github.com/google/uuid"

	"consistency-server/internal/models"
)

// VerdictRepository stores append-only review verdicts.
type VerdictRepository interface {
	Save(ctx context.Context, verdict *models.ReviewVerdict) error
	// RejectionPatterns groups rejection categories with counts for a
	// character, ordered by count descending.
	RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error)
}

// OutcomeRepository stores append-only generation outcome records.
type OutcomeRepository interface {
	Save(ctx context.Context, outcome *models.GenerationOutcome) error
	// ListApprovedAbove returns approved outcomes with quality >= minQuality.
	ListApprovedAbove(ctx context.Context, characterID uuid.UUID, minQuality float64) ([]models.GenerationOutcome, error)
	// QualityTrend returns per-day average quality over the trailing window.
	QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error)
}

// RegenGuard is the atomic per-image processed flag behind the
// at-most-one-regeneration guarantee.
type RegenGuard interface {
	// MarkProcessed sets the flag for imageID and reports whether this call
	// was the first to do so.
	MarkProcessed(ctx context.Context, imageID string) (bool, error)
}
