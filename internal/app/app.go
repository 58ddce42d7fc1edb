// Package app wires configuration into the services shared by the binaries.
package app

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"njcrashes/internal/config"
	"njcrashes/internal/decoder"
	"njcrashes/internal/dedupe"
	"njcrashes/internal/notify"
	"njcrashes/internal/notify/ses"
	"njcrashes/internal/port"
	"njcrashes/internal/repository/postgres"
	"njcrashes/internal/schema"
	"njcrashes/internal/service"
	"njcrashes/internal/storage/local"
	s3storage "njcrashes/internal/storage/s3"
)

// App holds the long-lived collaborators. DB is nil when the run ledger is disabled.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Storage port.ObjectStorage
	Decode  service.DecodeService
	Ingest  service.IngestService
	Notify  port.BatchNotifier
}

// New connects storage and, if enabled, the database, and builds the services.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	storage, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := NewNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Storage: storage, Decode: NewDecodeService(cfg, logger), Notify: notifier}

	var runRepo port.IngestRunRepository
	var conflictRepo port.MergeConflictRepository
	if cfg.DB.Enabled {
		a.DB, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		runRepo = postgres.NewIngestRunRepo(a.DB)
		conflictRepo = postgres.NewMergeConflictRepo(a.DB)
	} else {
		logger.Info("app.New: database disabled, runs will not be recorded")
	}

	a.Ingest = service.NewIngestService(a.Decode, storage, runRepo, conflictRepo, service.IngestConfig{
		Bucket:       cfg.S3.Bucket,
		RawPrefix:    cfg.S3.RawPrefix,
		OutputPrefix: cfg.S3.OutputPrefix,
		Concurrency:  cfg.Ingest.Concurrency,
	}, logger.Named("ingest"))
	return a, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// NewStorage returns the configured object storage backend.
func NewStorage(cfg *config.Config) (port.ObjectStorage, error) {
	switch cfg.Storage.Provider {
	case "s3":
		s, err := s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return s, nil
	case "local":
		s, err := local.NewLocalStorage(cfg.Storage.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// NewNotifier returns the configured batch report sink.
func NewNotifier(cfg *config.Config, logger *zap.Logger) (port.BatchNotifier, error) {
	switch cfg.Notify.Provider {
	case "ses":
		n, err := ses.NewSESNotifier(cfg.Notify.Region, cfg.Notify.FromAddress, cfg.Notify.FromName, cfg.Notify.Recipients)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
		return n, nil
	case "log", "":
		return notify.NewLogNotifier(logger.Named("notify")), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Notify.Provider)
	}
}

// NewDecodeService builds the schema → adapt → decode → reconcile pipeline.
// It needs no storage or database.
func NewDecodeService(cfg *config.Config, logger *zap.Logger) service.DecodeService {
	store := schema.NewStore(Layouts(cfg.Schema.Dir), schema.NewCache())
	resolver := dedupe.NewResolver(dedupe.ResolverConfig{
		ConflictThresholdFeet: cfg.Merge.ConflictThresholdFeet,
		Classifier: dedupe.ClassifierConfig{
			UpperMajority: cfg.Merge.UpperMajority,
			MixedMajority: cfg.Merge.MixedMajority,
		},
	})
	return service.NewDecodeService(
		store,
		schema.NewAdapter(schema.DefaultRegistry()),
		decoder.Options{
			MaxRecords:          cfg.Decode.MaxRecords,
			MaxReplacementRatio: cfg.Decode.MaxReplacementRatio,
			ForceLegacyCharset:  cfg.Decode.ForceLegacyCharset,
		},
		dedupe.NewReconciler(resolver, cfg.Merge.Concurrency, logger.Named("dedupe")),
		logger.Named("decode"),
	)
}

// Layouts returns the descriptor directory, or the embedded layouts when dir is empty.
func Layouts(dir string) fs.FS {
	if dir == "" {
		return schema.DefaultLayouts()
	}
	return os.DirFS(dir)
}
