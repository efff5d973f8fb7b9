package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"consistency-server/internal/models"
)

// Mock VerificationService
type VerificationService struct {
	mock.Mock
}

func (m *VerificationService) AssessConsistency(ctx context.Context, imageID, imagePath string, characterID uuid.UUID) (*models.ConsistencyAssessment, error) {
	args := m.Called(ctx, imageID, imagePath, characterID)
	if a, ok := args.Get(0).(*models.ConsistencyAssessment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VerificationService) ValidateComposition(ctx context.Context, imagePath, prompt string) (*models.CompositionResult, error) {
	args := m.Called(ctx, imagePath, prompt)
	if r, ok := args.Get(0).(*models.CompositionResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VerificationService) RecordVerdict(ctx context.Context, imageID string, characterID uuid.UUID, approved bool, feedback *models.VerdictFeedback) (bool, error) {
	args := m.Called(ctx, imageID, characterID, approved, feedback)
	return args.Bool(0), args.Error(1)
}

func (m *VerificationService) RecordOutcome(ctx context.Context, outcome *models.GenerationOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *VerificationService) SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error) {
	args := m.Called(ctx, characterID)
	if s, ok := args.Get(0).(*models.ParamSuggestion); ok {
		return s, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *VerificationService) RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error) {
	args := m.Called(ctx, characterID)
	if p, ok := args.Get(0).([]models.RejectionPattern); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VerificationService) QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error) {
	args := m.Called(ctx, characterID, windowDays)
	if p, ok := args.Get(0).([]models.QualityPoint); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *VerificationService) SetCharacterThreshold(characterID uuid.UUID, threshold float64) {
	m.Called(characterID, threshold)
}
