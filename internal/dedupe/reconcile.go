package dedupe

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"njcrashes/internal/domain"
)

// Stats summarizes one reconcile pass.
type Stats struct {
	InputRecords    int `json:"input_records"`
	UniqueKeys      int `json:"unique_keys"`
	DuplicateGroups int `json:"duplicate_groups"`
	Duplicates      int `json:"duplicates"`
	Paired          int `json:"paired"`
	Fallback        int `json:"fallback"`
	Unresolved      int `json:"unresolved"`
}

// Result is a reconciled table plus its audit side-table.
type Result struct {
	// Records holds exactly one record per distinct primary key, in
	// first-occurrence order.
	Records  []domain.RawRecord
	Outcomes []domain.MergeOutcome
	// Conflicts lists every member of each unresolved group followed by the
	// reconciled row (Position -1). RunID, Year and CreatedAt are left for the
	// caller to fill.
	Conflicts []domain.MergeConflictRow
	Stats     Stats
}

// Reconciler groups a decoded table by primary key and resolves every
// duplicate group. Groups are independent and resolved concurrently.
type Reconciler struct {
	resolver    *Resolver
	concurrency int
	logger      *zap.Logger
}

// NewReconciler creates a Reconciler. concurrency <= 0 means one worker.
func NewReconciler(resolver *Resolver, concurrency int, logger *zap.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{resolver: resolver, concurrency: concurrency, logger: logger}
}

// Reconcile merges records of the given kind. The returned error is either a
// configuration error (missing key column) or ctx's error.
func (r *Reconciler) Reconcile(ctx context.Context, kind domain.RecordKind, records []domain.RawRecord) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRecordKind, int(kind))
	}
	spec := kind.Spec()

	part, err := Group(records, spec.PrimaryKey)
	if err != nil {
		return nil, fmt.Errorf("dedupe.Reconcile: %w", err)
	}

	outcomes := make([]domain.MergeOutcome, len(part.Groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range part.Groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := r.resolver.Resolve(part.Groups[i], spec)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dedupe.Reconcile: %w", err)
	}

	res := &Result{
		Records:  make([]domain.RawRecord, 0, len(part.Buckets)),
		Outcomes: outcomes,
		Stats: Stats{
			InputRecords:    len(records),
			UniqueKeys:      len(part.Buckets),
			DuplicateGroups: len(part.Groups),
			Duplicates:      part.Duplicates(),
		},
	}
	for _, b := range part.Buckets {
		if b.Group < 0 {
			res.Records = append(res.Records, b.Members[0])
			continue
		}
		res.Records = append(res.Records, outcomes[b.Group].Reconciled)
	}

	for i := range outcomes {
		o := &outcomes[i]
		if o.Strategy == domain.StrategyPairedVersions {
			res.Stats.Paired++
		} else {
			res.Stats.Fallback++
		}
		if o.Resolved {
			continue
		}
		res.Stats.Unresolved++
		r.logger.Debug("dedupe.Reconcile: unresolved group", zap.String("outcome", describe(*o)))
		rows, err := conflictRows(kind, part.Groups[i], o)
		if err != nil {
			return nil, fmt.Errorf("dedupe.Reconcile: %w", err)
		}
		res.Conflicts = append(res.Conflicts, rows...)
	}

	r.logger.Info("dedupe.Reconcile: done",
		zap.String("kind", kind.String()),
		zap.Int("records", res.Stats.InputRecords),
		zap.Int("unique_keys", res.Stats.UniqueKeys),
		zap.Int("groups", res.Stats.DuplicateGroups),
		zap.Int("paired", res.Stats.Paired),
		zap.Int("unresolved", res.Stats.Unresolved))
	return res, nil
}

func conflictRows(kind domain.RecordKind, g domain.DuplicateGroup, o *domain.MergeOutcome) ([]domain.MergeConflictRow, error) {
	prov, err := json.Marshal(o.Provenance)
	if err != nil {
		return nil, err
	}
	row := func(position int, class domain.CaseClass, rec domain.RawRecord) (domain.MergeConflictRow, error) {
		body, err := json.Marshal(rec)
		if err != nil {
			return domain.MergeConflictRow{}, err
		}
		return domain.MergeConflictRow{
			Kind:       kind.String(),
			PrimaryKey: o.Key.String(),
			GroupIndex: o.GroupIndex,
			Position:   position,
			SourceLine: rec.Line,
			CaseClass:  class,
			Strategy:   o.Strategy,
			Resolved:   o.Resolved,
			LLDist:     o.ConflictDistance,
			Provenance: prov,
			Record:     body,
		}, nil
	}

	rows := make([]domain.MergeConflictRow, 0, len(g.Members)+1)
	for i, m := range g.Members {
		r, err := row(i, o.Classes[i], m)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	r, err := row(-1, "", o.Reconciled)
	if err != nil {
		return nil, err
	}
	return append(rows, r), nil
}
