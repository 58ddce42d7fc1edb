package port

import (
	"context"

	"github.com/google/uuid"

	"njcrashes/internal/domain"
)

// IngestRunFilter narrows IngestRunRepository.List. Zero values match everything.
type IngestRunFilter struct {
	Kind   string
	Year   int
	Status domain.IngestStatus
}

// IngestRunRepository defines the contract for the ingest run ledger.
type IngestRunRepository interface {
	Create(ctx context.Context, run *domain.IngestRun) error
	Finish(ctx context.Context, run *domain.IngestRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error)
	List(ctx context.Context, filter IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error)
}
