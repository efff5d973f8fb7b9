// Package ledger records approve/reject verdicts and drives the idempotent
// regeneration trigger for rejected artifacts.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
)

// actionableCategories lists the rejection feedback categories that justify an
// automatic regeneration. Anything else is recorded but does not retrigger.
var actionableCategories = map[string]bool{
	models.FeedbackBadQuality:          true,
	models.FeedbackWrongCharacter:      true,
	models.FeedbackCompositionMismatch: true,
	models.FeedbackAnatomyError:        true,
}

// RegenerationTrigger enqueues a follow-up generation request.
type RegenerationTrigger interface {
	QueueRegeneration(ctx context.Context, characterID uuid.UUID, sourceImageID, reason string) error
}

// Ledger is the append-only review record. Each rejected image triggers at
// most one regeneration; repeat verdicts for the same image id are no-ops for
// the trigger.
type Ledger struct {
	verdicts interfaces.VerdictRepository
	outcomes interfaces.OutcomeRepository
	guard    interfaces.RegenGuard
	trigger  RegenerationTrigger
	logger   *zap.Logger
}

// New creates a review ledger.
func New(
	verdicts interfaces.VerdictRepository,
	outcomes interfaces.OutcomeRepository,
	guard interfaces.RegenGuard,
	trigger RegenerationTrigger,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		verdicts: verdicts,
		outcomes: outcomes,
		guard:    guard,
		trigger:  trigger,
		logger:   logger.Named("ReviewLedger"),
	}
}

// RecordVerdict persists the verdict and, for a rejection with an actionable
// feedback category, queues exactly one regeneration. The returned bool
// reports whether a regeneration was queued by this call.
//
// Idempotency: the per-image processed flag is an atomic check-and-set, so
// concurrent duplicate submissions for one image cannot double-trigger.
func (l *Ledger) RecordVerdict(ctx context.Context, imageID string, characterID uuid.UUID, approved bool, feedback *models.VerdictFeedback) (bool, error) {
	verdict := &models.ReviewVerdict{
		ID:          uuid.New(),
		ImageID:     imageID,
		CharacterID: characterID,
		Approved:    approved,
		CreatedAt:   time.Now().UTC(),
	}
	if feedback != nil {
		verdict.Category = feedback.Category
		verdict.Reason = feedback.Reason
	}

	if err := l.verdicts.Save(ctx, verdict); err != nil {
		return false, fmt.Errorf("failed to record verdict for image %s: %w", imageID, err)
	}

	log := l.logger.With(
		zap.String("image_id", imageID),
		zap.String("character_id", characterID.String()),
		zap.Bool("approved", approved),
	)
	log.Info("Verdict recorded")

	if approved || feedback == nil || !actionableCategories[feedback.Category] {
		return false, nil
	}

	first, err := l.guard.MarkProcessed(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("failed to check regeneration guard for image %s: %w", imageID, err)
	}
	if !first {
		log.Debug("Regeneration already queued for this image, skipping")
		return false, nil
	}

	if err := l.trigger.QueueRegeneration(ctx, characterID, imageID, feedback.Category); err != nil {
		// The flag is already set; a failed publish stays failed rather than
		// risking a duplicate generation on retry.
		log.Error("Failed to queue regeneration after claiming the processed flag", zap.Error(err))
		return false, fmt.Errorf("failed to queue regeneration for image %s: %w", imageID, err)
	}

	log.Info("Regeneration queued for rejected image", zap.String("category", feedback.Category))
	return true, nil
}

// RecordOutcome appends a generation outcome record to the learner's history.
func (l *Ledger) RecordOutcome(ctx context.Context, outcome *models.GenerationOutcome) error {
	if outcome.ID == uuid.Nil {
		outcome.ID = uuid.New()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}

	if err := l.outcomes.Save(ctx, outcome); err != nil {
		return fmt.Errorf("failed to record outcome for image %s: %w", outcome.ImageID, err)
	}
	return nil
}
