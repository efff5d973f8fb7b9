// Package learner aggregates historical generation outcomes into parameter
// suggestions and rejection/trend reports. All outputs are derived on demand
// from persisted history and never stored.
package learner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/interfaces"
	"consistency-server/internal/models"
)

// InsufficientDataReason is the explanatory string returned when a character's
// approved history is below the minimum support.
const InsufficientDataReason = "Insufficient data"

// Config holds the learner's calibration values.
type Config struct {
	// MinSupport is the minimum number of qualifying outcomes backing a
	// suggestion. Canonical value: 5.
	MinSupport int
	// SuccessQuality is the minimum quality score an approved outcome needs
	// to count toward suggestions.
	SuccessQuality float64
}

// Learner computes per-character suggestions from outcome history.
type Learner struct {
	outcomes interfaces.OutcomeRepository
	verdicts interfaces.VerdictRepository
	cfg      Config
	logger   *zap.Logger
}

// New creates a parameter learner.
func New(outcomes interfaces.OutcomeRepository, verdicts interfaces.VerdictRepository, cfg Config, logger *zap.Logger) *Learner {
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = 5
	}
	return &Learner{
		outcomes: outcomes,
		verdicts: verdicts,
		cfg:      cfg,
		logger:   logger.Named("ParameterLearner"),
	}
}

// SuggestParams aggregates approved, high-quality outcomes into a suggestion:
// median cfg/steps, most frequent sampler. Below minimum support it returns a
// nil suggestion with a reason string, never an error.
func (l *Learner) SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error) {
	outcomes, err := l.outcomes.ListApprovedAbove(ctx, characterID, l.cfg.SuccessQuality)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load outcomes for character %s: %w", characterID, err)
	}

	if len(outcomes) < l.cfg.MinSupport {
		l.logger.Debug("Not enough approved outcomes for a suggestion",
			zap.String("character_id", characterID.String()),
			zap.Int("have", len(outcomes)),
			zap.Int("need", l.cfg.MinSupport),
		)
		return nil, InsufficientDataReason, nil
	}

	cfgScales := make([]float64, 0, len(outcomes))
	steps := make([]int, 0, len(outcomes))
	samplerCounts := make(map[string]int)
	for _, o := range outcomes {
		cfgScales = append(cfgScales, o.CFGScale)
		steps = append(steps, o.Steps)
		if o.Sampler != "" {
			samplerCounts[o.Sampler]++
		}
	}

	suggestion := &models.ParamSuggestion{
		CharacterID: characterID,
		Sampler:     modalSampler(samplerCounts),
		CFGScale:    medianFloat(cfgScales),
		Steps:       medianInt(steps),
		SampleSize:  len(outcomes),
		Confidence:  math.Min(1.0, float64(len(outcomes))/20.0),
	}

	l.logger.Debug("Parameter suggestion computed",
		zap.String("character_id", characterID.String()),
		zap.Int("sample_size", suggestion.SampleSize),
		zap.String("sampler", suggestion.Sampler),
	)
	return suggestion, "", nil
}

// RejectionPatterns groups historical rejection feedback by category.
func (l *Learner) RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error) {
	patterns, err := l.verdicts.RejectionPatterns(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rejection patterns for character %s: %w", characterID, err)
	}
	return patterns, nil
}

// QualityTrend returns the per-day quality averages over the trailing window.
// An invalid window is a structured error, not a panic.
func (l *Learner) QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: window_days must be positive, got %d", models.ErrInvalidInput, windowDays)
	}

	points, err := l.outcomes.QualityTrend(ctx, characterID, windowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load quality trend for character %s: %w", characterID, err)
	}
	return points, nil
}

func medianFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func medianInt(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// modalSampler returns the most frequent sampler, ties broken alphabetically
// for determinism.
func modalSampler(counts map[string]int) string {
	best := ""
	bestCount := 0
	for sampler, count := range counts {
		if count > bestCount || (count == bestCount && (best == "" || sampler < best)) {
			best = sampler
			bestCount = count
		}
	}
	return best
}
