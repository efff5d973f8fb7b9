package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
)

// Compile-time check to ensure pgReferenceRepository implements the interface
var _ interfaces.ReferenceRepository = (*pgReferenceRepository)(nil)

const (
	listReferencesQuery = `
		SELECT id, character_id, image_id, image_path, embedding, created_at
		FROM character_references
		WHERE character_id = $1
		ORDER BY created_at ASC, id ASC
	`
	saveReferenceQuery = `
		INSERT INTO character_references (id, character_id, image_id, image_path, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	// Oldest-first eviction: keep only the newest $2 rows per character.
	trimReferencesQuery = `
		DELETE FROM character_references
		WHERE character_id = $1
		  AND id NOT IN (
			SELECT id FROM character_references
			WHERE character_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		  )
	`
	countReferencesQuery = `SELECT COUNT(*) FROM character_references WHERE character_id = $1`
)

// pgReferenceRepository implements ReferenceRepository for PostgreSQL.
type pgReferenceRepository struct {
	db     interfaces.DBTX // Can be *pgxpool.Pool or pgx.Tx
	logger *zap.Logger
}

// NewPgReferenceRepository creates a new pgReferenceRepository.
func NewPgReferenceRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ReferenceRepository {
	return &pgReferenceRepository{
		db:     db,
		logger: logger.Named("PgReferenceRepo"),
	}
}

// ListByCharacter returns the character's references, oldest first.
func (r *pgReferenceRepository) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.Reference, error) {
	rows, err := r.db.Query(ctx, listReferencesQuery, characterID)
	if err != nil {
		r.logger.Error("Failed to query references", zap.String("character_id", characterID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query references for character %s: %w", characterID, err)
	}
	defer rows.Close()

	var refs []models.Reference
	for rows.Next() {
		var ref models.Reference
		if err := rows.Scan(&ref.ID, &ref.CharacterID, &ref.ImageID, &ref.ImagePath, pq.Array(&ref.Embedding), &ref.CreatedAt); err != nil {
			r.logger.Error("Failed to scan reference row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating reference rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating reference rows: %w", err)
	}

	r.logger.Debug("References listed", zap.String("character_id", characterID.String()), zap.Int("count", len(refs)))
	return refs, nil
}

// Save inserts a new reference row.
func (r *pgReferenceRepository) Save(ctx context.Context, ref *models.Reference) error {
	_, err := r.db.Exec(ctx, saveReferenceQuery,
		ref.ID,
		ref.CharacterID,
		ref.ImageID,
		ref.ImagePath,
		pq.Array(ref.Embedding),
		ref.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save reference",
			zap.String("reference_id", ref.ID.String()),
			zap.String("character_id", ref.CharacterID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save reference %s: %w", ref.ID, err)
	}

	r.logger.Debug("Reference saved", zap.String("reference_id", ref.ID.String()))
	return nil
}

// TrimToCap deletes the oldest rows beyond cap.
func (r *pgReferenceRepository) TrimToCap(ctx context.Context, characterID uuid.UUID, cap int) (int64, error) {
	tag, err := r.db.Exec(ctx, trimReferencesQuery, characterID, cap)
	if err != nil {
		r.logger.Error("Failed to trim references", zap.String("character_id", characterID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to trim references for character %s: %w", characterID, err)
	}
	return tag.RowsAffected(), nil
}

// CountByCharacter returns the current reference count.
func (r *pgReferenceRepository) CountByCharacter(ctx context.Context, characterID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countReferencesQuery, characterID).Scan(&count); err != nil {
		r.logger.Error("Failed to count references", zap.String("character_id", characterID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to count references for character %s: %w", characterID, err)
	}
	return count, nil
}
