// Package refstore manages the bounded per-character reference sets that act
// as ground truth for a character's visual identity.
package refstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
	"consistency-server/internal/scoring"
)

// lockStripes sizes the mutex table used to serialize per-character mutations.
const lockStripes = 64

// Store wraps the reference repository with the bounded-set policy: FIFO
// eviction at the cap, self-bootstrapping on first contact, and
// self-reinforcement with candidates that score above the acceptance
// threshold. Mutations for one character are serialized through striped locks
// so two concurrent generations cannot lose updates.
type Store struct {
	repo        interfaces.ReferenceRepository
	scorer      scoring.Scorer
	cap         int
	acceptScore float64
	locks       [lockStripes]sync.Mutex
	logger      *zap.Logger
}

// New creates a reference store.
func New(repo interfaces.ReferenceRepository, scorer scoring.Scorer, cap int, acceptScore float64, logger *zap.Logger) *Store {
	if cap <= 0 {
		cap = 10
	}
	return &Store{
		repo:        repo,
		scorer:      scorer,
		cap:         cap,
		acceptScore: acceptScore,
		logger:      logger.Named("ReferenceStore"),
	}
}

func (s *Store) lockFor(characterID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(characterID[:])
	return &s.locks[h.Sum32()%lockStripes]
}

// BestMatch returns the maximum similarity between the candidate image and the
// character's stored references.
//
// An empty reference set is a success case, never an error: the candidate
// becomes the first reference and the score is 1.0. A candidate scoring at or
// above the acceptance threshold is itself stored, so the set self-reinforces
// toward recent approved likenesses, bounded by the cap.
func (s *Store) BestMatch(ctx context.Context, characterID uuid.UUID, imageID, imagePath string, image []byte) (float64, error) {
	rep, err := s.scorer.Represent(ctx, image)
	if err != nil {
		return 0, fmt.Errorf("failed to represent candidate image: %w", err)
	}

	mu := s.lockFor(characterID)
	mu.Lock()
	defer mu.Unlock()

	refs, err := s.repo.ListByCharacter(ctx, characterID)
	if err != nil {
		return 0, fmt.Errorf("failed to list references for character %s: %w", characterID, err)
	}

	if len(refs) == 0 {
		s.logger.Info("Bootstrapping reference set with first image",
			zap.String("character_id", characterID.String()),
			zap.String("image_id", imageID),
		)
		s.persist(ctx, characterID, imageID, imagePath, rep)
		return 1.0, nil
	}

	best := 0.0
	for _, ref := range refs {
		score, cmpErr := s.scorer.Compare(ctx, rep, ref)
		if cmpErr != nil {
			// A single unreadable reference must not fail the assessment.
			s.logger.Warn("Reference comparison failed, skipping reference",
				zap.String("reference_id", ref.ID.String()),
				zap.Error(cmpErr),
			)
			continue
		}
		if score > best {
			best = score
		}
	}

	if best >= s.acceptScore {
		s.persist(ctx, characterID, imageID, imagePath, rep)
	}

	return best, nil
}

// StoreReference adds an image to the character's reference set directly,
// bypassing the acceptance threshold (curated uploads, approved artifacts).
func (s *Store) StoreReference(ctx context.Context, characterID uuid.UUID, imageID, imagePath string, image []byte) error {
	rep, err := s.scorer.Represent(ctx, image)
	if err != nil {
		return fmt.Errorf("failed to represent reference image: %w", err)
	}

	mu := s.lockFor(characterID)
	mu.Lock()
	defer mu.Unlock()

	ref := &models.Reference{
		ID:          uuid.New(),
		CharacterID: characterID,
		ImageID:     imageID,
		ImagePath:   imagePath,
		Embedding:   rep.Embedding,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, ref); err != nil {
		return fmt.Errorf("failed to save reference: %w", err)
	}

	if _, err := s.repo.TrimToCap(ctx, characterID, s.cap); err != nil {
		return fmt.Errorf("failed to trim reference set: %w", err)
	}
	return nil
}

// persist stores a new reference and evicts beyond the cap. Persistence
// failures are logged and tolerated: the score already computed stays valid
// and the set will converge on a later write.
func (s *Store) persist(ctx context.Context, characterID uuid.UUID, imageID, imagePath string, rep *scoring.Representation) {
	ref := &models.Reference{
		ID:          uuid.New(),
		CharacterID: characterID,
		ImageID:     imageID,
		ImagePath:   imagePath,
		Embedding:   rep.Embedding,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, ref); err != nil {
		s.logger.Error("Failed to persist reference",
			zap.String("character_id", characterID.String()),
			zap.String("image_id", imageID),
			zap.Error(err),
		)
		return
	}

	evicted, err := s.repo.TrimToCap(ctx, characterID, s.cap)
	if err != nil {
		s.logger.Error("Failed to trim reference set",
			zap.String("character_id", characterID.String()),
			zap.Error(err),
		)
		return
	}
	if evicted > 0 {
		s.logger.Debug("Evicted oldest references",
			zap.String("character_id", characterID.String()),
			zap.Int64("evicted", evicted),
		)
	}
}
