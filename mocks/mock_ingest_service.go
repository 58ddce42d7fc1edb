package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
	"njcrashes/internal/service"
)

// MockIngestService is a mock implementation of service.IngestService.
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) IngestFile(ctx context.Context, req service.IngestRequest) (*domain.IngestRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestRun), args.Error(1)
}

func (m *MockIngestService) IngestAll(ctx context.Context, reqs []service.IngestRequest) ([]domain.IngestRun, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IngestRun), args.Error(1)
}

func (m *MockIngestService) GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestRun), args.Error(1)
}

func (m *MockIngestService) ListRuns(ctx context.Context, filter port.IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IngestRun), args.Int(1), args.Error(2)
}

func (m *MockIngestService) ListConflicts(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error) {
	args := m.Called(ctx, runID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.MergeConflictRow), args.Int(1), args.Error(2)
}

func (m *MockIngestService) OutputURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
