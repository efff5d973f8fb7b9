package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock Publisher
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, payload interface{}, correlationID string) error {
	args := m.Called(ctx, payload, correlationID)
	return args.Error(0)
}

func (m *Publisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
