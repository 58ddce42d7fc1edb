package port

import (
	"context"

	"github.com/google/uuid"

	"njcrashes/internal/domain"
)

// MergeConflictRepository defines the contract for the unresolved-merge audit table.
type MergeConflictRepository interface {
	CreateBatch(ctx context.Context, rows []domain.MergeConflictRow) error
	ListByRun(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error)
}
