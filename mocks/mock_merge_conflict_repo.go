package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"njcrashes/internal/domain"
)

// MockMergeConflictRepo is a mock implementation of port.MergeConflictRepository.
type MockMergeConflictRepo struct {
	mock.Mock
}

func (m *MockMergeConflictRepo) CreateBatch(ctx context.Context, rows []domain.MergeConflictRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockMergeConflictRepo) ListByRun(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error) {
	args := m.Called(ctx, runID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.MergeConflictRow), args.Int(1), args.Error(2)
}
