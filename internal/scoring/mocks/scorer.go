package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"consistency-server/internal/models"
	"consistency-server/internal/scoring"
)

// Mock Scorer
type Scorer struct {
	mock.Mock
}

func (m *Scorer) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *Scorer) Represent(ctx context.Context, image []byte) (*scoring.Representation, error) {
	args := m.Called(ctx, image)
	if rep, ok := args.Get(0).(*scoring.Representation); ok {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Scorer) Compare(ctx context.Context, rep *scoring.Representation, ref models.Reference) (float64, error) {
	args := m.Called(ctx, rep, ref)
	return args.Get(0).(float64), args.Error(1)
}
