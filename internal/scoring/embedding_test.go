package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"consistency-server/internal/models"
	"consistency-server/internal/scoring"
	visionmocks "consistency-server/internal/vision/mocks"
)

func TestEmbeddingScorer_Compare(t *testing.T) {
	ctx := context.Background()
	image := []byte("candidate")

	testCases := []struct {
		name      string
		candidate []float64
		reference []float64
		want      float64
	}{
		{
			name:      "Identical vectors score one",
			candidate: []float64{0.5, 0.5, 0.5},
			reference: []float64{0.5, 0.5, 0.5},
			want:      1.0,
		},
		{
			name:      "Orthogonal vectors score zero",
			candidate: []float64{1, 0},
			reference: []float64{0, 1},
			want:      0.0,
		},
		{
			name:      "Opposite vectors clamp to zero",
			candidate: []float64{1, 0},
			reference: []float64{-1, 0},
			want:      0.0,
		},
		{
			name:      "Mismatched lengths score zero",
			candidate: []float64{1, 0},
			reference: []float64{1, 0, 0},
			want:      0.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			embedder := new(visionmocks.Embedder)
			embedder.On("Embed", ctx, image).Return(tc.candidate, nil).Once()

			scorer := scoring.NewEmbeddingScorer(embedder, zap.NewNop())

			rep, err := scorer.Represent(ctx, image)
			require.NoError(t, err)

			score, err := scorer.Compare(ctx, rep, models.Reference{ID: uuid.New(), Embedding: tc.reference})
			require.NoError(t, err)
			assert.InDelta(t, tc.want, score, 1e-9)
			embedder.AssertExpectations(t)
		})
	}
}

func TestEmbeddingScorer_RepresentFailure(t *testing.T) {
	ctx := context.Background()
	embedder := new(visionmocks.Embedder)
	embedder.On("Embed", ctx, []byte("broken")).Return(nil, models.ErrBackendUnavailable).Once()

	scorer := scoring.NewEmbeddingScorer(embedder, zap.NewNop())

	_, err := scorer.Represent(ctx, []byte("broken"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrBackendUnavailable))
	embedder.AssertExpectations(t)
}

func TestEmbeddingScorer_Method(t *testing.T) {
	scorer := scoring.NewEmbeddingScorer(new(visionmocks.Embedder), zap.NewNop())
	assert.Equal(t, models.ScoringMethodEmbedding, scorer.Method())
}

func TestSelect(t *testing.T) {
	ctx := context.Background()

	t.Run("Backend available picks embedding strategy", func(t *testing.T) {
		embedder := new(visionmocks.Embedder)
		embedder.On("Available", ctx).Return(true).Once()

		scorer := scoring.Select(ctx, embedder, zap.NewNop())
		assert.Equal(t, models.ScoringMethodEmbedding, scorer.Method())
		embedder.AssertExpectations(t)
	})

	t.Run("Backend unavailable falls back to histogram", func(t *testing.T) {
		embedder := new(visionmocks.Embedder)
		embedder.On("Available", ctx).Return(false).Once()

		scorer := scoring.Select(ctx, embedder, zap.NewNop())
		assert.Equal(t, models.ScoringMethodHistogram, scorer.Method())
		embedder.AssertExpectations(t)
	})

	t.Run("Nil embedder falls back to histogram", func(t *testing.T) {
		scorer := scoring.Select(ctx, nil, zap.NewNop())
		assert.Equal(t, models.ScoringMethodHistogram, scorer.Method())
	})
}
