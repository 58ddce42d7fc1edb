package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

// MockIngestRunRepo is a mock implementation of port.IngestRunRepository.
type MockIngestRunRepo struct {
	mock.Mock
}

func (m *MockIngestRunRepo) Create(ctx context.Context, run *domain.IngestRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockIngestRunRepo) Finish(ctx context.Context, run *domain.IngestRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockIngestRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestRun), args.Error(1)
}

func (m *MockIngestRunRepo) List(ctx context.Context, filter port.IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IngestRun), args.Int(1), args.Error(2)
}
