package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

type ingestRunRepo struct {
	db *sqlx.DB
}

// NewIngestRunRepo creates a new PostgreSQL-backed IngestRunRepository.
func NewIngestRunRepo(db *sqlx.DB) port.IngestRunRepository {
	return &ingestRunRepo{db: db}
}

func (r *ingestRunRepo) Create(ctx context.Context, run *domain.IngestRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, kind, year, source_key, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Kind, run.Year, run.SourceKey, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("ingestRunRepo.Create: %w", err)
	}
	return nil
}

func (r *ingestRunRepo) Finish(ctx context.Context, run *domain.IngestRun) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE ingest_runs SET
			source_key = $1, status = $2, total_records = $3, unique_keys = $4,
			duplicate_groups = $5, unresolved = $6, issue_count = $7,
			diagnostics = $8, patches = $9, output_key = $10, conflicts_key = $11,
			error = $12, finished_at = $13
		 WHERE id = $14`,
		run.SourceKey, run.Status, run.TotalRecords, run.UniqueKeys,
		run.DuplicateGroups, run.Unresolved, run.IssueCount,
		nullJSON(run.Diagnostics), nullJSON(run.Patches), run.OutputKey, run.ConflictsKey,
		run.Error, run.FinishedAt,
		run.ID)
	if err != nil {
		return fmt.Errorf("ingestRunRepo.Finish: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ingestRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	var run domain.IngestRun
	err := r.db.GetContext(ctx, &run, "SELECT * FROM ingest_runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ingestRunRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *ingestRunRepo) List(ctx context.Context, filter port.IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ingest_runs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("ingestRunRepo.List count: %w", err)
	}

	var runs []domain.IngestRun
	query := fmt.Sprintf("SELECT * FROM ingest_runs%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	if err := r.db.SelectContext(ctx, &runs, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("ingestRunRepo.List: %w", err)
	}
	return runs, total, nil
}

// nullJSON stores an empty document as SQL NULL instead of invalid JSONB.
func nullJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
