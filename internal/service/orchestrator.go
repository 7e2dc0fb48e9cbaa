package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/gateway"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/metrics"
	"github.com/timmy/ottgen/internal/repository"
	"github.com/timmy/ottgen/internal/source"
)

var (
	// ErrCandidateNotFound is returned by manual operations on an unknown ID.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrInvalidState is returned when a manual generation targets a candidate that is not queued.
	ErrInvalidState = errors.New("invalid candidate state")
	// ErrLockNotAcquired is returned when another worker claimed the candidate first.
	ErrLockNotAcquired = errors.New("candidate is not available for generation")
)

// Enricher produces replacement overview text. It reports failures through the result reason.
type Enricher interface {
	Enrich(ctx context.Context, req domain.EnrichRequest) domain.EnrichResult
}

// PayloadArchiver stores a copy of each payload before it is submitted.
type PayloadArchiver interface {
	Put(ctx context.Context, c *domain.Candidate, payload any, at time.Time) (string, error)
}

// OrchestratorConfig holds the knobs the control loop reads on every run.
type OrchestratorConfig struct {
	Discovery  config.DiscoveryConfig
	Enrich     config.EnrichConfig
	Generation config.GenerationConfig
}

// Orchestrator ties discovery, the candidate store and the generation gateway together.
type Orchestrator struct {
	store     *repository.CandidateStore
	source    source.DiscoverySource
	enricher  Enricher
	gateway   gateway.Submitter
	archive   PayloadArchiver
	metrics   *metrics.Metrics
	cfg       OrchestratorConfig
	providers map[string]struct{}
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator. archive may be nil.
func NewOrchestrator(
	store *repository.CandidateStore,
	src source.DiscoverySource,
	enricher Enricher,
	submitter gateway.Submitter,
	archive PayloadArchiver,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.Generation.PerRunSubmitLimit <= 0 {
		cfg.Generation.PerRunSubmitLimit = 1
	}
	return &Orchestrator{
		store:     store,
		source:    src,
		enricher:  enricher,
		gateway:   submitter,
		archive:   archive,
		metrics:   metrics.Get(),
		cfg:       cfg,
		providers: cfg.Discovery.TargetProviderSet(),
		now:       time.Now,
	}
}

// NewOrchestratorConfig extracts the sections the orchestrator needs.
func NewOrchestratorConfig(cfg *config.Config) OrchestratorConfig {
	return OrchestratorConfig{
		Discovery:  cfg.Discovery,
		Enrich:     cfg.Enrich,
		Generation: cfg.Generation,
	}
}

// withRun tags ctx with a fresh run ID and the component name.
func (o *Orchestrator) withRun(ctx context.Context, component string) context.Context {
	if logger.GetRunID(ctx) == "" {
		ctx = logger.SetRunID(ctx, uuid.NewString())
	}
	return logger.SetComponent(ctx, component)
}
