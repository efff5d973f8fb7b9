package scoring

import (
	"context"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"consistency-server/internal/models"
	"consistency-server/internal/vision"
)

// EmbeddingScorer scores with cosine similarity between backend embeddings.
type EmbeddingScorer struct {
	embedder vision.Embedder
	logger   *zap.Logger
}

var _ Scorer = (*EmbeddingScorer)(nil)

// NewEmbeddingScorer creates the embedding-based strategy.
func NewEmbeddingScorer(embedder vision.Embedder, logger *zap.Logger) *EmbeddingScorer {
	return &EmbeddingScorer{
		embedder: embedder,
		logger:   logger.Named("EmbeddingScorer"),
	}
}

// Method implements Scorer.
func (s *EmbeddingScorer) Method() string { return models.ScoringMethodEmbedding }

// Represent embeds the candidate image once.
func (s *EmbeddingScorer) Represent(ctx context.Context, image []byte) (*Representation, error) {
	emb, err := s.embedder.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to embed candidate image: %w", err)
	}
	return &Representation{Embedding: emb}, nil
}

// Compare returns the clamped cosine similarity between the candidate and one
// reference. References stored before the backend existed carry no embedding;
// those are embedded from their stored artifact on first use.
func (s *EmbeddingScorer) Compare(ctx context.Context, rep *Representation, ref models.Reference) (float64, error) {
	refEmb := ref.Embedding
	if len(refEmb) == 0 {
		data, err := os.ReadFile(ref.ImagePath)
		if err != nil {
			return 0, fmt.Errorf("%w: reference %s: %v", models.ErrImageRead, ref.ID, err)
		}
		refEmb, err = s.embedder.Embed(ctx, data)
		if err != nil {
			return 0, fmt.Errorf("failed to embed reference %s: %w", ref.ID, err)
		}
		s.logger.Debug("Backfilled embedding for legacy reference", zap.String("reference_id", ref.ID.String()))
	}

	return clamp01(cosine(rep.Embedding, refEmb)), nil
}

// cosine computes the cosine similarity of two vectors. Mismatched lengths or
// zero vectors score 0.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
