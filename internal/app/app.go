// Package app wires configuration into a ready-to-run pipeline for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/enrich"
	"github.com/timmy/ottgen/internal/gateway"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/repository"
	"github.com/timmy/ottgen/internal/scheduler"
	"github.com/timmy/ottgen/internal/service"
	"github.com/timmy/ottgen/internal/source/tmdb"
	"github.com/timmy/ottgen/internal/storage"
)

// App holds the pipeline shared by the CLI and the API server.
type App struct {
	Config       *config.Config
	Store        *repository.CandidateStore
	Orchestrator *service.Orchestrator

	closers []func()
}

// New opens the database, the gateway and the optional payload archive, and
// builds the orchestrator on top of them.
// Parameters:
//   - ctx: context used for startup calls such as bucket creation.
//   - cfg: validated configuration.
// Returns:
//   - *App: wired application; call Close when done.
//   - error: non-nil if any backing service cannot be initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	a.Store = repository.NewCandidateStore(db)

	submitter, closeGateway, err := gateway.New(cfg.Gateway)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init gateway: %w", err)
	}
	a.closers = append(a.closers, closeGateway)

	archive, err := newArchive(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	src := tmdb.NewClient(tmdb.Config{
		APIKey:            cfg.Discovery.APIKey,
		BaseURL:           cfg.Discovery.BaseURL,
		Language:          cfg.Discovery.Language,
		Region:            cfg.Discovery.Region,
		ImageBaseURL:      cfg.Discovery.ImageBaseURL,
		PerPageLimit:      cfg.Discovery.PerPageLimit,
		RequestsPerSecond: cfg.Discovery.RequestsPerSecond,
		Timeout:           cfg.Discovery.Timeout,
	})

	var archiver service.PayloadArchiver
	if archive != nil {
		archiver = archive
	}
	a.Orchestrator = service.NewOrchestrator(
		a.Store,
		src,
		enrich.NewFromConfig(cfg.Enrich),
		submitter,
		archiver,
		service.NewOrchestratorConfig(cfg),
	)

	logger.With(logger.Fields{
		"db_driver":   cfg.Database.Driver,
		"submit_mode": cfg.Gateway.SubmitMode,
		"archive":     archive != nil,
		"daily_limit": cfg.Generation.DailyLimit,
	}).Info(ctx, "Pipeline initialized")

	return a, nil
}

// newArchive returns nil when the payload archive is disabled.
func newArchive(ctx context.Context, cfg config.StorageConfig) (*storage.PayloadArchive, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if b, ok := store.(storage.BucketInitializer); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure storage bucket: %w", err)
		}
	}
	return storage.NewPayloadArchive(store, cfg.Prefix), nil
}

// Scheduler builds the daily parse and publish-hour batch schedule over the orchestrator.
func (a *App) Scheduler() *scheduler.Scheduler {
	parse := func(ctx context.Context) error {
		res, err := a.Orchestrator.ParseSources(ctx)
		if err != nil {
			return err
		}
		logger.With(logger.Fields{
			"queued":            res.Queued,
			"skipped_provider":  res.SkippedProvider,
			"skipped_images":    res.SkippedImages,
			"skipped_duplicate": res.SkippedDuplicate,
			"failed":            res.Failed,
		}).Info(ctx, "Scheduled parse finished")
		return nil
	}
	batch := func(ctx context.Context) error {
		_, err := a.Orchestrator.GenerateDailyBatch(ctx)
		return err
	}
	return scheduler.New(a.Config.Schedule, parse, batch)
}

// Close releases the database and gateway connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
