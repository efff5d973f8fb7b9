package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
)

// Compile-time check to ensure pgOutcomeRepository implements the interface
var _ interfaces.OutcomeRepository = (*pgOutcomeRepository)(nil)

const (
	saveOutcomeQuery = `
		INSERT INTO generation_outcomes (
			id, image_id, character_id, sampler, cfg_scale, steps, seed,
			quality, approved, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	listApprovedAboveQuery = `
		SELECT id, image_id, character_id, sampler, cfg_scale, steps, seed,
		       quality, approved, created_at
		FROM generation_outcomes
		WHERE character_id = $1 AND approved = TRUE AND quality >= $2
		ORDER BY created_at DESC
	`
	qualityTrendQuery = `
		SELECT date_trunc('day', created_at) AS day, AVG(quality) AS avg_quality, COUNT(*) AS cnt
		FROM generation_outcomes
		WHERE character_id = $1 AND created_at >= NOW() - make_interval(days => $2)
		GROUP BY day
		ORDER BY day ASC
	`
)

// pgOutcomeRepository implements OutcomeRepository for PostgreSQL.
type pgOutcomeRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgOutcomeRepository creates a new pgOutcomeRepository.
func NewPgOutcomeRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.OutcomeRepository {
	return &pgOutcomeRepository{
		db:     db,
		logger: logger.Named("PgOutcomeRepo"),
	}
}

// Save inserts an outcome row.
func (r *pgOutcomeRepository) Save(ctx context.Context, outcome *models.GenerationOutcome) error {
	_, err := r.db.Exec(ctx, saveOutcomeQuery,
		outcome.ID,
		outcome.ImageID,
		outcome.CharacterID,
		outcome.Sampler,
		outcome.CFGScale,
		outcome.Steps,
		outcome.Seed,
		outcome.Quality,
		outcome.Approved,
		outcome.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save generation outcome",
			zap.String("image_id", outcome.ImageID),
			zap.String("character_id", outcome.CharacterID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save outcome for image %s: %w", outcome.ImageID, err)
	}

	r.logger.Debug("Generation outcome saved", zap.String("image_id", outcome.ImageID))
	return nil
}

// ListApprovedAbove returns approved outcomes with quality >= minQuality.
func (r *pgOutcomeRepository) ListApprovedAbove(ctx context.Context, characterID uuid.UUID, minQuality float64) ([]models.GenerationOutcome, error) {
	rows, err := r.db.Query(ctx, listApprovedAboveQuery, characterID, minQuality)
	if err != nil {
		r.logger.Error("Failed to query approved outcomes", zap.String("character_id", characterID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query approved outcomes for character %s: %w", characterID, err)
	}
	defer rows.Close()

	var outcomes []models.GenerationOutcome
	for rows.Next() {
		var o models.GenerationOutcome
		if err := rows.Scan(&o.ID, &o.ImageID, &o.CharacterID, &o.Sampler, &o.CFGScale, &o.Steps, &o.Seed, &o.Quality, &o.Approved, &o.CreatedAt); err != nil {
			r.logger.Error("Failed to scan outcome row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome rows: %w", err)
	}

	return outcomes, nil
}

// QualityTrend returns the per-day quality averages over the trailing window.
func (r *pgOutcomeRepository) QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error) {
	rows, err := r.db.Query(ctx, qualityTrendQuery, characterID, windowDays)
	if err != nil {
		r.logger.Error("Failed to query quality trend", zap.String("character_id", characterID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to query quality trend for character %s: %w", characterID, err)
	}
	defer rows.Close()

	var points []models.QualityPoint
	for rows.Next() {
		var p models.QualityPoint
		if err := rows.Scan(&p.Date, &p.AvgQuality, &p.Count); err != nil {
			r.logger.Error("Failed to scan quality trend row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan quality trend row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quality trend rows: %w", err)
	}

	return points, nil
}
