package app

import (
	"context"
	"fmt"

	"companyinfo/cmd/internal/config"
	"companyinfo/cmd/internal/domain/ingest"
	"companyinfo/cmd/internal/domain/postgres"
	"companyinfo/cmd/internal/domain/sqlite"
	"companyinfo/cmd/internal/domain/sqlite/repository"
	"companyinfo/cmd/internal/infrastructure/aws/storage"
	"companyinfo/cmd/internal/service"
	"companyinfo/cmd/internal/service/jobs"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

// CompanyStore is a storage gateway for the companies table.
type CompanyStore interface {
	ingest.Gateway
	service.CompanyRepository
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
}

type UploadStore interface {
	service.UploadRepository
	jobs.UploadRepository
	EnsureSchema(ctx context.Context) error
}

// App holds everything built from a Config, shared by the API and the CLI.
type App struct {
	Config   *config.Config
	Validate *validator.Validate

	Companies CompanyStore
	Uploads   UploadStore
	Pipeline  *ingest.Pipeline

	CompanyService *service.DefaultCompanyService
	UploadService  *service.DefaultUploadService

	close func() error
}

// New opens storage, makes sure the tables exist and builds the services.
// Storage that cannot be reached is reported as *ingest.ConnectionError.
func New(ctx context.Context, cfg *config.Config, validate *validator.Validate) (*App, error) {
	a := &App{Config: cfg, Validate: validate}

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	if err := a.ensureSchema(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	archive, err := storage.NewS3Archive(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create upload archive: %w", err)
	}
	if cfg.S3Bucket == "" {
		log.Debug("S3_BUCKET_NAME not set, uploads are not archived")
	}

	a.Pipeline = ingest.NewPipeline(a.Companies, validate, ingest.Config{
		BatchSize: cfg.BatchSize,
		KeyCase:   cfg.KeyCase(),
	})
	a.CompanyService = service.NewCompanyService(a.Pipeline, a.Companies, a.Uploads, archive, validate, cfg.Policy(), cfg.UploadLimit())
	a.UploadService = service.NewUploadService(a.Uploads, validate)
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Init(ctx, sqlite.Config{
			Path:  a.Config.DBPath,
			Debug: a.Config.LogLevel == "debug",
		})
		if err != nil {
			return &ingest.ConnectionError{Op: "open sqlite", Err: err}
		}

		a.Companies = repository.NewCompanyRepository(db)
		a.Uploads = repository.NewUploadRepository(db)
		a.close = func() error { return sqlite.Close(db) }
		log.Debugf("using sqlite database %s", a.Config.DBPath)

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, &postgres.PoolConfig{
			ConnString: a.Config.DatabaseURL,
			MaxConns:   a.Config.DBMaxConns,
		})
		if err != nil {
			return &ingest.ConnectionError{Op: "connect postgres", Err: err}
		}

		a.Companies = postgres.NewCompanyStore(pool)
		a.Uploads = postgres.NewUploadStore(pool)
		a.close = func() error {
			pool.Close()
			return nil
		}
		log.Debug("using postgres database")

	default:
		return fmt.Errorf("unknown database driver %q", a.Config.DBDriver)
	}
	return nil
}

func (a *App) ensureSchema(ctx context.Context) error {
	if err := a.Companies.EnsureSchema(ctx); err != nil {
		return &ingest.ConnectionError{Op: "ensure companies schema", Err: err}
	}
	if err := a.Uploads.EnsureSchema(ctx); err != nil {
		return &ingest.ConnectionError{Op: "ensure upload reports schema", Err: err}
	}
	return nil
}

// HistoryCleaner returns the job pruning old upload reports.
func (a *App) HistoryCleaner() *jobs.UploadHistoryCleaner {
	return jobs.NewUploadHistoryCleaner(a.Uploads, a.Config.UploadHistoryTTL)
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}
