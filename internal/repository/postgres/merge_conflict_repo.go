package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

// conflictBatchSize keeps one INSERT well under the 65535 bind-parameter limit.
const conflictBatchSize = 500

type mergeConflictRepo struct {
	db *sqlx.DB
}

// NewMergeConflictRepo creates a new PostgreSQL-backed MergeConflictRepository.
func NewMergeConflictRepo(db *sqlx.DB) port.MergeConflictRepository {
	return &mergeConflictRepo{db: db}
}

const insertConflict = `INSERT INTO merge_conflicts
	(id, run_id, kind, year, primary_key, group_index, position, source_line,
	 case_class, merge_strategy, resolved, ll_dist, provenance, record, created_at)
	VALUES
	(:id, :run_id, :kind, :year, :primary_key, :group_index, :position, :source_line,
	 :case_class, :merge_strategy, :resolved, :ll_dist, :provenance, :record, :created_at)`

func (r *mergeConflictRepo) CreateBatch(ctx context.Context, rows []domain.MergeConflictRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mergeConflictRepo.CreateBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += conflictBatchSize {
		end := min(start+conflictBatchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertConflict, rows[start:end]); err != nil {
			return fmt.Errorf("mergeConflictRepo.CreateBatch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mergeConflictRepo.CreateBatch commit: %w", err)
	}
	return nil
}

func (r *mergeConflictRepo) ListByRun(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM merge_conflicts WHERE run_id = $1", runID)
	if err != nil {
		return nil, 0, fmt.Errorf("mergeConflictRepo.ListByRun count: %w", err)
	}

	var rows []domain.MergeConflictRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM merge_conflicts
		 WHERE run_id = $1
		 ORDER BY group_index, position = -1, position
		 LIMIT $2 OFFSET $3`,
		runID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("mergeConflictRepo.ListByRun: %w", err)
	}
	return rows, total, nil
}
