package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"consistency-server/internal/models"
)

// Mock Embedder
type Embedder struct {
	mock.Mock
}

func (m *Embedder) Embed(ctx context.Context, image []byte) ([]float64, error) {
	args := m.Called(ctx, image)
	if emb, ok := args.Get(0).([]float64); ok {
		return emb, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Embedder) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// Mock Detector
type Detector struct {
	mock.Mock
}

func (m *Detector) Detect(ctx context.Context, image []byte) ([]models.Region, error) {
	args := m.Called(ctx, image)
	if regions, ok := args.Get(0).([]models.Region); ok {
		return regions, args.Error(1)
	}
	return nil, args.Error(1)
}
