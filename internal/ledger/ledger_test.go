package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	ifacemocks "consistency-server/internal/interfaces/mocks"
	"consistency-server/internal/ledger"
	"consistency-server/internal/models"
)

type triggerMock struct {
	mock.Mock
}

func (m *triggerMock) QueueRegeneration(ctx context.Context, characterID uuid.UUID, sourceImageID, reason string) error {
	args := m.Called(ctx, characterID, sourceImageID, reason)
	return args.Error(0)
}

type ledgerFixture struct {
	verdicts *ifacemocks.VerdictRepository
	outcomes *ifacemocks.OutcomeRepository
	guard    *ifacemocks.RegenGuard
	trigger  *triggerMock
	ledger   *ledger.Ledger
}

func newFixture() *ledgerFixture {
	f := &ledgerFixture{
		verdicts: new(ifacemocks.VerdictRepository),
		outcomes: new(ifacemocks.OutcomeRepository),
		guard:    new(ifacemocks.RegenGuard),
		trigger:  new(triggerMock),
	}
	f.ledger = ledger.New(f.verdicts, f.outcomes, f.guard, f.trigger, zap.NewNop())
	return f
}

func TestLedger_RecordVerdict_RejectionQueuesOnce(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()
	feedback := &models.VerdictFeedback{Category: models.FeedbackBadQuality, Reason: "blurry output"}

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.MatchedBy(func(v *models.ReviewVerdict) bool {
		return v.ImageID == "img-1" && !v.Approved && v.Category == models.FeedbackBadQuality
	})).Return(nil).Twice()
	f.guard.On("MarkProcessed", ctx, "img-1").Return(true, nil).Once()
	f.guard.On("MarkProcessed", ctx, "img-1").Return(false, nil).Once()
	f.trigger.On("QueueRegeneration", ctx, characterID, "img-1", models.FeedbackBadQuality).Return(nil).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-1", characterID, false, feedback)
	require.NoError(t, err)
	assert.True(t, queued)

	// Second verdict for the same image is recorded but triggers nothing.
	queued, err = f.ledger.RecordVerdict(ctx, "img-1", characterID, false, feedback)
	require.NoError(t, err)
	assert.False(t, queued)

	f.verdicts.AssertExpectations(t)
	f.guard.AssertExpectations(t)
	f.trigger.AssertExpectations(t)
}

func TestLedger_RecordVerdict_ApprovalNeverQueues(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.Anything).Return(nil).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-2", characterID, true, nil)

	require.NoError(t, err)
	assert.False(t, queued)
	f.guard.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	f.trigger.AssertNotCalled(t, "QueueRegeneration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_RecordVerdict_NonActionableCategory(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.Anything).Return(nil).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-3", characterID, false,
		&models.VerdictFeedback{Category: "user_changed_mind"})

	require.NoError(t, err)
	assert.False(t, queued)
	f.guard.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestLedger_RecordVerdict_RejectionWithoutFeedback(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.Anything).Return(nil).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-4", uuid.New(), false, nil)

	require.NoError(t, err)
	assert.False(t, queued)
	f.trigger.AssertNotCalled(t, "QueueRegeneration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_RecordVerdict_SaveFailure(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.Anything).Return(errors.New("connection refused")).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-5", uuid.New(), false,
		&models.VerdictFeedback{Category: models.FeedbackWrongCharacter})

	require.Error(t, err)
	assert.False(t, queued)
	f.guard.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestLedger_RecordVerdict_QueueFailureKeepsFlag(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	f := newFixture()
	f.verdicts.On("Save", ctx, mock.Anything).Return(nil).Once()
	f.guard.On("MarkProcessed", ctx, "img-6").Return(true, nil).Once()
	f.trigger.On("QueueRegeneration", ctx, characterID, "img-6", models.FeedbackAnatomyError).
		Return(errors.New("channel closed")).Once()

	queued, err := f.ledger.RecordVerdict(ctx, "img-6", characterID, false,
		&models.VerdictFeedback{Category: models.FeedbackAnatomyError})

	require.Error(t, err)
	assert.False(t, queued)
	f.trigger.AssertExpectations(t)
}

func TestLedger_RecordOutcome(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	f := newFixture()
	f.outcomes.On("Save", ctx, mock.MatchedBy(func(o *models.GenerationOutcome) bool {
		return o.ID != uuid.Nil && !o.CreatedAt.IsZero()
	})).Return(nil).Once()

	err := f.ledger.RecordOutcome(ctx, &models.GenerationOutcome{
		ImageID:     "img-7",
		CharacterID: characterID,
		Sampler:     "euler_a",
		CFGScale:    7.5,
		Steps:       28,
		Quality:     0.82,
		Approved:    true,
	})

	require.NoError(t, err)
	f.outcomes.AssertExpectations(t)
}

func TestLedger_RecordOutcome_KeepsExplicitFields(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f := newFixture()
	f.outcomes.On("Save", ctx, mock.MatchedBy(func(o *models.GenerationOutcome) bool {
		return o.ID == id && o.CreatedAt.Equal(createdAt)
	})).Return(nil).Once()

	err := f.ledger.RecordOutcome(ctx, &models.GenerationOutcome{
		ID:          id,
		ImageID:     "img-8",
		CharacterID: uuid.New(),
		CreatedAt:   createdAt,
	})

	require.NoError(t, err)
	f.outcomes.AssertExpectations(t)
}
