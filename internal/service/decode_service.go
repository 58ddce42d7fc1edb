package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"njcrashes/internal/decoder"
	"njcrashes/internal/dedupe"
	"njcrashes/internal/domain"
	"njcrashes/internal/schema"
)

// DecodeInput is the DTO for decoding one file held in memory.
type DecodeInput struct {
	Kind domain.RecordKind
	Year int
	// Data is the raw fixed-width text, or a ZIP archive holding it.
	Data []byte
	// MaxRecords overrides the configured limit when positive.
	MaxRecords int
	// Dedupe runs duplicate reconciliation over the decoded table.
	Dedupe bool
}

// DecodeResult is a decoded table with its diagnostics and, when requested,
// its reconciliation.
type DecodeResult struct {
	Kind        domain.RecordKind        `json:"kind"`
	Year        int                      `json:"year"`
	Era         domain.Era               `json:"era"`
	Patches     []string                 `json:"patches"`
	Columns     []string                 `json:"columns"`
	Diagnostics *domain.ParseDiagnostics `json:"diagnostics"`
	Records     []domain.RawRecord       `json:"records"`
	Merge       *dedupe.Result           `json:"-"`
}

// Table returns the reconciled records when deduplication ran, else the decoded ones.
func (r *DecodeResult) Table() []domain.RawRecord {
	if r.Merge != nil {
		return r.Merge.Records
	}
	return r.Records
}

// DecodeService defines the schema → adapt → decode → reconcile pipeline.
type DecodeService interface {
	Decode(ctx context.Context, input DecodeInput) (*DecodeResult, error)
	Schema(kind domain.RecordKind, year int) (*domain.Schema, error)
}

type decodeService struct {
	store      *schema.Store
	adapter    *schema.Adapter
	opts       decoder.Options
	reconciler *dedupe.Reconciler
	logger     *zap.Logger
}

// NewDecodeService creates a new DecodeService implementation.
func NewDecodeService(
	store *schema.Store,
	adapter *schema.Adapter,
	opts decoder.Options,
	reconciler *dedupe.Reconciler,
	logger *zap.Logger,
) DecodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &decodeService{
		store:      store,
		adapter:    adapter,
		opts:       opts,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *decodeService) Schema(kind domain.RecordKind, year int) (*domain.Schema, error) {
	base, err := s.store.ForYear(kind, year)
	if err != nil {
		return nil, err
	}
	adapted, err := s.adapter.Adapt(base, kind, year)
	if err != nil {
		return nil, fmt.Errorf("adapting %s/%d: %w", kind, year, err)
	}
	return adapted, nil
}

func (s *decodeService) Decode(ctx context.Context, input DecodeInput) (*DecodeResult, error) {
	if len(input.Data) == 0 {
		return nil, domain.ErrEmptyInput
	}
	sch, err := s.Schema(input.Kind, input.Year)
	if err != nil {
		return nil, err
	}

	data := input.Data
	if isZip(data) {
		data, err = extractText(data, SourceName(input.Kind, input.Year, ".txt"))
		if err != nil {
			return nil, err
		}
	}

	opts := s.opts
	if input.MaxRecords > 0 {
		opts.MaxRecords = input.MaxRecords
	}
	records, diag, err := decoder.New(opts, s.logger).Decode(data, sch)
	if err != nil {
		return nil, err
	}
	if diag.HasIssues() {
		s.logger.Warn("decodeService.Decode: malformed records",
			zap.String("kind", input.Kind.String()),
			zap.Int("year", input.Year),
			zap.Int("issues", len(diag.Issues)),
			zap.Any("by_kind", diag.IssueCounts()))
	}

	res := &DecodeResult{
		Kind:        input.Kind,
		Year:        input.Year,
		Era:         sch.Era(),
		Patches:     sch.Patches(),
		Columns:     sch.Columns().Names(),
		Diagnostics: diag,
		Records:     records,
	}
	if !input.Dedupe {
		return res, nil
	}

	res.Merge, err = s.reconciler.Reconcile(ctx, input.Kind, records)
	if err != nil {
		return nil, err
	}
	for i := range res.Merge.Conflicts {
		res.Merge.Conflicts[i].Year = input.Year
	}
	return res, nil
}

// SourceName is the agency's file name for a (kind, year), e.g. NewJersey2019Accidents.txt.
func SourceName(kind domain.RecordKind, year int, ext string) string {
	return fmt.Sprintf("NewJersey%d%s%s", year, kind.Label(), ext)
}
