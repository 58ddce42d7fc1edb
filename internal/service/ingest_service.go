package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"njcrashes/internal/csvexport"
	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

// IngestConfig holds object storage locations and batch settings.
type IngestConfig struct {
	Bucket       string
	RawPrefix    string
	OutputPrefix string
	Concurrency  int
}

// IngestRequest names one source file.
type IngestRequest struct {
	Kind domain.RecordKind
	Year int
}

// Requests is the cross product of kinds and years, years outermost.
func Requests(kinds []domain.RecordKind, years []int) []IngestRequest {
	out := make([]IngestRequest, 0, len(kinds)*len(years))
	for _, y := range years {
		for _, k := range kinds {
			out = append(out, IngestRequest{Kind: k, Year: y})
		}
	}
	return out
}

// IngestService defines batch ingestion of the agency's yearly files.
type IngestService interface {
	IngestFile(ctx context.Context, req IngestRequest) (*domain.IngestRun, error)
	IngestAll(ctx context.Context, reqs []IngestRequest) ([]domain.IngestRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error)
	ListRuns(ctx context.Context, filter port.IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error)
	ListConflicts(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error)
	OutputURL(ctx context.Context, key string) (string, error)
}

type ingestService struct {
	decodeSvc    DecodeService
	storage      port.ObjectStorage
	runRepo      port.IngestRunRepository
	conflictRepo port.MergeConflictRepository
	cfg          IngestConfig
	logger       *zap.Logger
}

// NewIngestService creates a new IngestService. runRepo and conflictRepo may be
// nil, in which case runs are not persisted.
func NewIngestService(
	decodeSvc DecodeService,
	storage port.ObjectStorage,
	runRepo port.IngestRunRepository,
	conflictRepo port.MergeConflictRepository,
	cfg IngestConfig,
	logger *zap.Logger,
) IngestService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ingestService{
		decodeSvc:    decodeSvc,
		storage:      storage,
		runRepo:      runRepo,
		conflictRepo: conflictRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// RawKey is the object key of a source file.
func RawKey(prefix string, kind domain.RecordKind, year int, ext string) string {
	return path.Join(prefix, fmt.Sprint(year), SourceName(kind, year, ext))
}

// OutputKey is the object key of an exported table.
func OutputKey(prefix string, kind domain.RecordKind, year int, conflicts bool) string {
	name := kind.Label()
	if conflicts {
		name += "_conflicts"
	}
	return path.Join(prefix, fmt.Sprint(year), name+".csv")
}

// IngestFile runs the full pipeline for one file. The returned run is non-nil
// whenever the run was started, including on failure.
func (s *ingestService) IngestFile(ctx context.Context, req IngestRequest) (*domain.IngestRun, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownRecordKind, int(req.Kind))
	}
	if _, err := domain.EraForYear(req.Year); err != nil {
		return nil, err
	}

	run := &domain.IngestRun{
		ID:        uuid.New(),
		Kind:      req.Kind.String(),
		Year:      req.Year,
		Status:    domain.IngestStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("creating ingest run: %w", err)
		}
	}

	log := s.logger.With(zap.String("run_id", run.ID.String()), zap.String("kind", run.Kind), zap.Int("year", run.Year))
	log.Info("ingestService.IngestFile: started")

	if err := s.ingest(ctx, req, run, log); err != nil {
		msg := err.Error()
		run.Status = domain.IngestStatusFailed
		run.Error = &msg
		log.Error("ingestService.IngestFile: failed", zap.Error(err))
		s.finish(run, log)
		return run, err
	}

	run.Status = domain.IngestStatusCompleted
	s.finish(run, log)
	log.Info("ingestService.IngestFile: completed",
		zap.Int("records", run.TotalRecords),
		zap.Int("unique_keys", run.UniqueKeys),
		zap.Int("duplicate_groups", run.DuplicateGroups),
		zap.Int("unresolved", run.Unresolved),
		zap.Int("issues", run.IssueCount))
	return run, nil
}

func (s *ingestService) ingest(ctx context.Context, req IngestRequest, run *domain.IngestRun, log *zap.Logger) error {
	data, key, err := s.fetch(ctx, req)
	if err != nil {
		return err
	}
	run.SourceKey = key

	res, err := s.decodeSvc.Decode(ctx, DecodeInput{Kind: req.Kind, Year: req.Year, Data: data, Dedupe: true})
	if err != nil {
		return err
	}

	run.TotalRecords = res.Diagnostics.TotalRecords
	run.IssueCount = len(res.Diagnostics.Issues)
	run.UniqueKeys = res.Merge.Stats.UniqueKeys
	run.DuplicateGroups = res.Merge.Stats.DuplicateGroups
	run.Unresolved = res.Merge.Stats.Unresolved
	if run.Diagnostics, err = json.Marshal(res.Diagnostics); err != nil {
		return fmt.Errorf("encoding diagnostics: %w", err)
	}
	if run.Patches, err = json.Marshal(res.Patches); err != nil {
		return fmt.Errorf("encoding patches: %w", err)
	}

	var table bytes.Buffer
	if err := csvexport.Table(&table, res.Table(), res.Columns); err != nil {
		return fmt.Errorf("exporting table: %w", err)
	}
	run.OutputKey = OutputKey(s.cfg.OutputPrefix, req.Kind, req.Year, false)
	if err := s.upload(ctx, run.OutputKey, &table); err != nil {
		return err
	}

	conflicts := res.Merge.Conflicts
	if len(conflicts) == 0 {
		// A previous run of the same file may have left a side-table behind.
		stale := OutputKey(s.cfg.OutputPrefix, req.Kind, req.Year, true)
		if err := s.storage.Delete(ctx, s.cfg.Bucket, stale); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("removing stale %s: %w", stale, err)
		}
		return nil
	}
	for i := range conflicts {
		conflicts[i].RunID = run.ID
	}
	var side bytes.Buffer
	if err := csvexport.Conflicts(&side, conflicts); err != nil {
		return fmt.Errorf("exporting conflicts: %w", err)
	}
	run.ConflictsKey = OutputKey(s.cfg.OutputPrefix, req.Kind, req.Year, true)
	if err := s.upload(ctx, run.ConflictsKey, &side); err != nil {
		return err
	}
	if s.conflictRepo != nil {
		if err := s.conflictRepo.CreateBatch(ctx, conflicts); err != nil {
			return fmt.Errorf("saving conflicts: %w", err)
		}
	}
	log.Debug("ingestService.IngestFile: wrote conflicts", zap.Int("rows", len(conflicts)))
	return nil
}

// fetch downloads the plain text file, falling back to a zipped one.
func (s *ingestService) fetch(ctx context.Context, req IngestRequest) ([]byte, string, error) {
	key := RawKey(s.cfg.RawPrefix, req.Kind, req.Year, ".txt")
	data, err := s.storage.Download(ctx, s.cfg.Bucket, key)
	if err == nil {
		return data, key, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, key, fmt.Errorf("downloading %s: %w", key, err)
	}

	zipKey := RawKey(s.cfg.RawPrefix, req.Kind, req.Year, ".zip")
	data, err = s.storage.Download(ctx, s.cfg.Bucket, zipKey)
	if err != nil {
		return nil, zipKey, fmt.Errorf("downloading %s: %w", zipKey, err)
	}
	return data, zipKey, nil
}

func (s *ingestService) upload(ctx context.Context, key string, body *bytes.Buffer) error {
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: "text/csv",
		Size:        int64(body.Len()),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// finish records the final run state. It uses a fresh context so a canceled
// batch still leaves an accurate ledger.
func (s *ingestService) finish(run *domain.IngestRun, log *zap.Logger) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if s.runRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runRepo.Finish(ctx, run); err != nil {
		log.Error("ingestService.finish: failed to record run", zap.Error(err))
	}
}

// IngestAll ingests every request with bounded parallelism. Results keep
// request order. A configuration error aborts the batch; any other failure is
// recorded in its run and the batch continues.
func (s *ingestService) IngestAll(ctx context.Context, reqs []IngestRequest) ([]domain.IngestRun, error) {
	runs := make([]*domain.IngestRun, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			run, err := s.IngestFile(gctx, req)
			runs[i] = run
			if err != nil && (domain.IsConfigurationError(err) || run == nil) {
				return fmt.Errorf("%s/%d: %w", req.Kind, req.Year, err)
			}
			return nil
		})
	}
	err := g.Wait()

	out := make([]domain.IngestRun, 0, len(runs))
	for _, r := range runs {
		if r != nil {
			out = append(out, *r)
		}
	}
	if err != nil {
		return out, fmt.Errorf("ingestService.IngestAll: %w", err)
	}
	return out, nil
}

func (s *ingestService) GetRun(ctx context.Context, id uuid.UUID) (*domain.IngestRun, error) {
	if s.runRepo == nil {
		return nil, domain.ErrLedgerDisabled
	}
	return s.runRepo.GetByID(ctx, id)
}

func (s *ingestService) ListRuns(ctx context.Context, filter port.IngestRunFilter, offset, limit int) ([]domain.IngestRun, int, error) {
	if s.runRepo == nil {
		return nil, 0, domain.ErrLedgerDisabled
	}
	return s.runRepo.List(ctx, filter, offset, limit)
}

func (s *ingestService) ListConflicts(ctx context.Context, runID uuid.UUID, offset, limit int) ([]domain.MergeConflictRow, int, error) {
	if s.conflictRepo == nil {
		return nil, 0, domain.ErrLedgerDisabled
	}
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, 0, err
	}
	return s.conflictRepo.ListByRun(ctx, runID, offset, limit)
}

// OutputURL returns a download link for an exported table, valid for one hour.
func (s *ingestService) OutputURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrNotFound
	}
	return s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, 3600)
}
