package interfaces

import (
	"context"

	"github.com/google/uuid"

	"consistency-server/internal/models"
)

// ReferenceRepository persists the bounded per-character reference sets.
type ReferenceRepository interface {
	// ListByCharacter returns the character's references ordered oldest first.
	ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.Reference, error)
	// Save inserts a new reference row.
	Save(ctx context.Context, ref *models.Reference) error
	// TrimToCap deletes the oldest rows beyond cap and reports how many went.
	TrimToCap(ctx context.Context, characterID uuid.UUID, cap int) (int64, error)
	// CountByCharacter returns the current reference count for a character.
	CountByCharacter(ctx context.Context, characterID uuid.UUID) (int, error)
}
