package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"consistency-server/internal/models"
)

// Mock ReferenceRepository
type ReferenceRepository struct {
	mock.Mock
}

func (m *ReferenceRepository) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.Reference, error) {
	args := m.Called(ctx, characterID)
	if refs, ok := args.Get(0).([]models.Reference); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReferenceRepository) Save(ctx context.Context, ref *models.Reference) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *ReferenceRepository) TrimToCap(ctx context.Context, characterID uuid.UUID, cap int) (int64, error) {
	args := m.Called(ctx, characterID, cap)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReferenceRepository) CountByCharacter(ctx context.Context, characterID uuid.UUID) (int, error) {
	args := m.Called(ctx, characterID)
	return args.Int(0), args.Error(1)
}

// Mock VerdictRepository
type VerdictRepository struct {
	mock.Mock
}

func (m *VerdictRepository) Save(ctx context.Context, verdict *models.ReviewVerdict) error {
	args := m.Called(ctx, verdict)
	return args.Error(0)
}

func (m *VerdictRepository) RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error) {
	args := m.Called(ctx, characterID)
	if patterns, ok := args.Get(0).([]models.RejectionPattern); ok {
		return patterns, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock OutcomeRepository
type OutcomeRepository struct {
	mock.Mock
}

func (m *OutcomeRepository) Save(ctx context.Context, outcome *models.GenerationOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *OutcomeRepository) ListApprovedAbove(ctx context.Context, characterID uuid.UUID, minQuality float64) ([]models.GenerationOutcome, error) {
	args := m.Called(ctx, characterID, minQuality)
	if outcomes, ok := args.Get(0).([]models.GenerationOutcome); ok {
		return outcomes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *OutcomeRepository) QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error) {
	args := m.Called(ctx, characterID, windowDays)
	if points, ok := args.Get(0).([]models.QualityPoint); ok {
		return points, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock RegenGuard
type RegenGuard struct {
	mock.Mock
}

func (m *RegenGuard) MarkProcessed(ctx context.Context, imageID string) (bool, error) {
	args := m.Called(ctx, imageID)
	return args.Bool(0), args.Error(1)
}
