// Package app builds the batch and storage backends and the components on
// top of them from configuration. The server and the CLI share it.
package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"scrape-portal/internal/batch"
	"scrape-portal/internal/config"
	"scrape-portal/internal/jobs"
	"scrape-portal/internal/logger"
	"scrape-portal/internal/results"
	"scrape-portal/internal/storage"
)

type App struct {
	Batch     batch.Service
	Store     storage.ObjectStore
	Submitter *jobs.Submitter
	Lister    *jobs.Lister
	Catalog   *results.Catalog
}

// New wires every component. recorder may be nil.
func New(ctx context.Context, cfg *config.Config, recorder jobs.Recorder) (*App, error) {
	svc, err := NewBatch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	return &App{
		Batch:     svc,
		Store:     store,
		Submitter: jobs.NewSubmitter(svc, Policy(cfg.Batch), recorder),
		Lister:    jobs.NewLister(svc),
		Catalog:   results.NewCatalog(store),
	}, nil
}

// Policy converts batch settings into the submission policy.
func Policy(cfg config.BatchConfig) jobs.Policy {
	p := jobs.DefaultPolicy(cfg.ImageURI)
	if cfg.Entrypoint != "" {
		p.Entrypoint = cfg.Entrypoint
	}
	if cfg.Script != "" {
		p.Script = cfg.Script
	}
	if cfg.MachineType != "" {
		p.MachineType = cfg.MachineType
	}
	if cfg.MaxRunDuration > 0 {
		p.MaxRunDuration = cfg.MaxRunDuration
	}
	if cfg.EnvLabel != "" {
		p.EnvLabel = cfg.EnvLabel
	}
	if cfg.Backend == config.BackendLocal {
		p.LogDestination = batch.LogsPath
	}
	return p
}

// NewBatch returns the batch backend named by batch.backend.
func NewBatch(ctx context.Context, cfg *config.Config) (batch.Service, error) {
	switch cfg.Batch.Backend {
	case config.BackendGCP:
		logger.Logger.Infow("Using Cloud Batch", "project", cfg.GCP.ProjectID, "region", cfg.GCP.Region)
		return batch.NewGCP(ctx, batch.GCPConfig{
			ProjectID:       cfg.GCP.ProjectID,
			Region:          cfg.GCP.Region,
			CredentialsFile: cfg.GCP.CredentialsFile,
			CredentialsJSON: cfg.GCP.CredentialsJSON,
		})
	case config.BackendLocal:
		logger.Logger.Infow("Running jobs as local processes", "workdir", cfg.Batch.LocalWorkdir)
		return batch.NewLocal(cfg.Batch.LocalWorkdir), nil
	case config.BackendMemory:
		logger.Logger.Warn("Using in-memory batch backend; jobs never run")
		return batch.NewMemory(cfg.GCP.ProjectID, cfg.GCP.Region), nil
	default:
		return nil, errors.Newf("unknown batch backend %q", cfg.Batch.Backend)
	}
}

// NewStore returns the object store named by storage.backend.
func NewStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	bucket := cfg.Storage.Bucket

	switch cfg.Storage.Backend {
	case config.BackendGCS:
		logger.Logger.Infow("Reading results from GCS", "bucket", bucket)
		return storage.NewGCSStore(ctx, bucket, batch.ClientOptions(cfg.GCP.CredentialsFile, cfg.GCP.CredentialsJSON)...)
	case config.BackendS3:
		logger.Logger.Infow("Reading results from S3", "bucket", bucket, "endpoint", cfg.S3.Endpoint)
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
		})
	case config.BackendMinIO:
		logger.Logger.Infow("Reading results from MinIO", "bucket", bucket, "endpoint", cfg.MinIO.Endpoint)
		return storage.NewMinIOClient(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	case config.BackendMemory:
		logger.Logger.Warn("Using in-memory result store; it starts empty")
		return storage.NewMemory(), nil
	default:
		return nil, errors.Newf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Close releases both backends.
func (a *App) Close() error {
	return errors.CombineErrors(a.Batch.Close(), a.Store.Close())
}
