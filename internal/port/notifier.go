package port

import (
	"context"

	"njcrashes/internal/domain"
)

// BatchNotifier reports the outcome of an ingest batch to operators.
type BatchNotifier interface {
	NotifyBatch(ctx context.Context, runs []domain.IngestRun) error
}
