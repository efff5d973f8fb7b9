// Package regen enqueues follow-up generation requests for rejected artifacts.
package regen

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/messaging"
	"consistency-server/internal/models"
)

// SuggestionSource provides the character's best-known generation settings.
// A nil suggestion with a reason is a normal answer, not an error.
type SuggestionSource interface {
	SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error)
}

// Trigger publishes regeneration tasks onto the render engine's queue.
// Deduplication against repeat rejections of the same image is the ledger's
// processed-flag; by the time QueueRegeneration runs, the caller holds the
// only ticket for this rejection event.
type Trigger struct {
	publisher   messaging.Publisher
	suggestions SuggestionSource
	logger      *zap.Logger
}

// NewTrigger creates a regeneration trigger. suggestions may be nil; tasks are
// then published without seeded settings.
func NewTrigger(publisher messaging.Publisher, suggestions SuggestionSource, logger *zap.Logger) *Trigger {
	return &Trigger{
		publisher:   publisher,
		suggestions: suggestions,
		logger:      logger.Named("RegenerationTrigger"),
	}
}

// QueueRegeneration enqueues one regeneration task for the character,
// optionally seeded with learned parameters.
func (t *Trigger) QueueRegeneration(ctx context.Context, characterID uuid.UUID, sourceImageID, reason string) error {
	payload := messaging.RegenerationTaskPayload{
		TaskID:        uuid.NewString(),
		CharacterID:   characterID,
		SourceImageID: sourceImageID,
		Reason:        reason,
	}

	if t.suggestions != nil {
		suggestion, why, err := t.suggestions.SuggestParams(ctx, characterID)
		switch {
		case err != nil:
			// Seeding is best effort; a failed lookup must not block the retry.
			t.logger.Warn("Failed to look up learned parameters for regeneration",
				zap.String("character_id", characterID.String()),
				zap.Error(err),
			)
		case suggestion == nil:
			t.logger.Debug("No learned parameters available for regeneration",
				zap.String("character_id", characterID.String()),
				zap.String("reason", why),
			)
		default:
			payload.SuggestedParams = suggestion
		}
	}

	if err := t.publisher.Publish(ctx, payload, payload.TaskID); err != nil {
		return fmt.Errorf("failed to publish regeneration task for image %s: %w", sourceImageID, err)
	}

	t.logger.Info("Regeneration task queued",
		zap.String("task_id", payload.TaskID),
		zap.String("character_id", characterID.String()),
		zap.String("source_image_id", sourceImageID),
		zap.Bool("seeded", payload.SuggestedParams != nil),
	)
	return nil
}
