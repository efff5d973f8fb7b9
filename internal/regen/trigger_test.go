package regen_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"consistency-server/internal/messaging"
	msgmocks "consistency-server/internal/messaging/mocks"
	"consistency-server/internal/models"
	"consistency-server/internal/regen"
)

type suggestionSourceMock struct {
	mock.Mock
}

func (m *suggestionSourceMock) SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error) {
	args := m.Called(ctx, characterID)
	if s, ok := args.Get(0).(*models.ParamSuggestion); ok {
		return s, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func TestTrigger_QueueRegeneration_SeedsLearnedParams(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	suggestion := &models.ParamSuggestion{
		CharacterID: characterID,
		Sampler:     "euler_a",
		CFGScale:    7.5,
		Steps:       28,
		SampleSize:  6,
		Confidence:  0.3,
	}

	source := new(suggestionSourceMock)
	source.On("SuggestParams", ctx, characterID).Return(suggestion, "", nil).Once()

	publisher := new(msgmocks.Publisher)
	publisher.On("Publish", ctx, mock.MatchedBy(func(p interface{}) bool {
		payload, ok := p.(messaging.RegenerationTaskPayload)
		return ok &&
			payload.CharacterID == characterID &&
			payload.SourceImageID == "img-1" &&
			payload.Reason == models.FeedbackBadQuality &&
			payload.SuggestedParams == suggestion &&
			payload.TaskID != ""
	}), mock.AnythingOfType("string")).Return(nil).Once()

	trigger := regen.NewTrigger(publisher, source, zap.NewNop())

	err := trigger.QueueRegeneration(ctx, characterID, "img-1", models.FeedbackBadQuality)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
	source.AssertExpectations(t)
}

func TestTrigger_QueueRegeneration_NoSuggestionAvailable(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	source := new(suggestionSourceMock)
	source.On("SuggestParams", ctx, characterID).Return(nil, "Insufficient data", nil).Once()

	publisher := new(msgmocks.Publisher)
	publisher.On("Publish", ctx, mock.MatchedBy(func(p interface{}) bool {
		payload, ok := p.(messaging.RegenerationTaskPayload)
		return ok && payload.SuggestedParams == nil
	}), mock.AnythingOfType("string")).Return(nil).Once()

	trigger := regen.NewTrigger(publisher, source, zap.NewNop())

	err := trigger.QueueRegeneration(ctx, characterID, "img-2", models.FeedbackWrongCharacter)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestTrigger_QueueRegeneration_SuggestionLookupFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	source := new(suggestionSourceMock)
	source.On("SuggestParams", ctx, characterID).Return(nil, "", errors.New("timeout")).Once()

	publisher := new(msgmocks.Publisher)
	publisher.On("Publish", ctx, mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()

	trigger := regen.NewTrigger(publisher, source, zap.NewNop())

	err := trigger.QueueRegeneration(ctx, characterID, "img-3", models.FeedbackAnatomyError)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestTrigger_QueueRegeneration_WithoutSuggestionSource(t *testing.T) {
	ctx := context.Background()

	publisher := new(msgmocks.Publisher)
	publisher.On("Publish", ctx, mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()

	trigger := regen.NewTrigger(publisher, nil, zap.NewNop())

	err := trigger.QueueRegeneration(ctx, uuid.New(), "img-4", models.FeedbackCompositionMismatch)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestTrigger_QueueRegeneration_PublishFailure(t *testing.T) {
	ctx := context.Background()

	publisher := new(msgmocks.Publisher)
	publisher.On("Publish", ctx, mock.Anything, mock.AnythingOfType("string")).
		Return(errors.New("channel closed")).Once()

	trigger := regen.NewTrigger(publisher, nil, zap.NewNop())

	err := trigger.QueueRegeneration(ctx, uuid.New(), "img-5", models.FeedbackBadQuality)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish regeneration task")
}
