// Package scoring computes consistency scores between a candidate image and a
// character's stored references. Two interchangeable strategies exist: cosine
// similarity over backend embeddings, and a histogram/pixel fallback that needs
// no backend. The strategy is chosen once at startup.
package scoring

import (
	"context"

	"go.uber.org/zap"

	"consistency-server/internal/models"
	"consistency-server/internal/vision"
)

// Representation is the comparable form of an image under the active strategy.
// Exactly one side is populated: Embedding for the embedding strategy,
// Histogram+Thumb for the fallback.
type Representation struct {
	Embedding []float64
	Histogram []float64
	Thumb     []uint8
}

// Scorer scores a candidate image against stored references. Scores are always
// within [0,1] and never NaN.
type Scorer interface {
	// Method names the strategy for ConsistencyAssessment.Method.
	Method() string
	// Represent converts raw image bytes into the comparable form. The result
	// is computed once per candidate and reused across references.
	Represent(ctx context.Context, image []byte) (*Representation, error)
	// Compare scores a candidate representation against one reference.
	Compare(ctx context.Context, rep *Representation, ref models.Reference) (float64, error)
}

// Select picks the scoring strategy: embeddings when the backend answers its
// health probe, the histogram fallback otherwise. Degraded mode is logged, not
// surfaced to callers.
func Select(ctx context.Context, embedder vision.Embedder, logger *zap.Logger) Scorer {
	if embedder != nil && embedder.Available(ctx) {
		logger.Info("Embedding backend available, using embedding similarity")
		return NewEmbeddingScorer(embedder, logger)
	}

	logger.Warn("Embedding backend unavailable, falling back to histogram/pixel scoring (degraded mode)")
	return NewHistogramScorer(logger)
}

// clamp01 bounds a score to [0,1]. NaN maps to 0.
func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
