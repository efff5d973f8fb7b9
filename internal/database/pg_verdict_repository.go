package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
)

// Compile-time check to ensure pgVerdictRepository implements the interface
var _ interfaces.VerdictRepository = (*pgVerdictRepository)(nil)

const (
	saveVerdictQuery = `
		INSERT INTO review_verdicts (id, image_id, character_id, approved, category, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	rejectionPatternsQuery = `
		SELECT category, COUNT(*) AS cnt
		FROM review_verdicts
		WHERE character_id = $1 AND approved = FALSE AND category <> ''
		GROUP BY category
		ORDER BY cnt DESC, category ASC
	`
)

// pgVerdictRepository implements VerdictRepository for PostgreSQL. Verdicts
// are append-only; there is no update path.
type pgVerdictRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgVerdictRepository creates a new pgVerdictRepository.
func NewPgVerdictRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.VerdictRepository {
	return &pgVerdictRepository{
		db:     db,
		logger: logger.Named("PgVerdictRepo"),
	}
}

// Save inserts a verdict row.
func (r *pgVerdictRepository) Save(ctx context.Context, verdict *models.ReviewVerdict) error {
	_, err := r.db.Exec(ctx, saveVerdictQuery,
		verdict.ID,
		verdict.ImageID,
		verdict.CharacterID,
		verdict.Approved,
		verdict.Category,
		verdict.Reason,
		verdict.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save verdict",
			zap.String("image_id", verdict.ImageID),
			zap.String("character_id", verdict.CharacterID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save verdict for image %s: %w", verdict.ImageID, err)
	}

	r.logger.Debug("Verdict saved", zap.String("image_id", verdict.ImageID), zap.Bool("approved", verdict.Approved))
	return nil
}

// RejectionPatterns groups rejection categories with counts, descending.
func (r *pgVerdictRepository) RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error) {
	rows, err := r.db.Query(ctx, rejectionPatternsQuery, characterID)
	if err != nil {
		r.logger.Error("Failed to query rejection patterns", zap.String("character_id", characterID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query rejection patterns for character %s: %w", characterID, err)
	}
	defer rows.Close()

	var patterns []models.RejectionPattern
	for rows.Next() {
		var p models.RejectionPattern
		if err := rows.Scan(&p.Category, &p.Count); err != nil {
			r.logger.Error("Failed to scan rejection pattern row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan rejection pattern row: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rejection pattern rows: %w", err)
	}

	return patterns, nil
}
