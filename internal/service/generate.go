package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/gateway"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/metrics"
	"github.com/timmy/ottgen/internal/repository"
)

// BatchResult summarizes one quota-aware generation run.
type BatchResult struct {
	TodayUsed int `json:"today_used"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// GenerateResult is the outcome of a manual single-candidate generation.
type GenerateResult struct {
	CandidateID int64  `json:"candidate_id"`
	PostID      *int64 `json:"post_id"`
	Status      string `json:"status"`
}

// GenerateDailyBatch submits up to min(remaining quota, per-run limit) queued
// candidates. A candidate lost to another worker is skipped; a candidate whose
// enrichment or submission fails is marked failed and the batch continues.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *BatchResult: today's usage after the run and per-outcome counts.
//   - error: non-nil only if the store cannot be read.
func (o *Orchestrator) GenerateDailyBatch(ctx context.Context) (*BatchResult, error) {
	ctx = o.withRun(ctx, "generate")
	start := time.Now()
	limit := o.cfg.Generation.DailyLimit

	used, err := o.store.TodayGeneratedCount(ctx)
	if err != nil {
		return nil, err
	}
	remaining := max(0, limit-used)
	if remaining == 0 {
		o.metrics.SetRemainingQuota(0)
		logger.With(logger.Fields{"today_used": used}).Info(ctx, "Daily quota exhausted")
		return &BatchResult{TodayUsed: used}, nil
	}

	target := min(remaining, o.cfg.Generation.PerRunSubmitLimit)
	queued, err := o.store.NextQueued(ctx, target, o.cfg.Generation.SchedulerMinOverviewLength)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for i := range queued {
		c := &queued[i]
		log := logger.FromContext(ctx).WithField(logger.FieldCandidateID, c.ID)

		acquired, err := o.store.AcquireGenerationLock(ctx, c.ID)
		if err != nil {
			log.WithError(err).Error("Failed to acquire generation lock")
			result.Failed++
			continue
		}
		if !acquired {
			o.metrics.RecordLockLost()
			log.Info("Skip generate, lock held by another worker")
			continue
		}

		res, err := o.generateClaimed(ctx, c.ID, o.cfg.Generation.SchedulerEnrichOverview)
		if err != nil {
			result.Failed++
			o.fail(ctx, c.ID, err)
			continue
		}
		result.Generated++
		log.WithField(logger.FieldStatus, res.Status).Info("Candidate submitted")
	}

	used, err = o.store.TodayGeneratedCount(ctx)
	if err != nil {
		return nil, err
	}
	result.TodayUsed = used
	result.Remaining = max(0, limit-used)
	o.metrics.SetRemainingQuota(result.Remaining)

	logger.With(logger.Fields{
		"generated": result.Generated,
		"failed":    result.Failed,
		"remaining": result.Remaining,
	}).Since(start).Info(ctx, "Generate batch finished")

	return result, nil
}

// GenerateOne submits a single queued candidate on demand.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: candidate ID.
// Returns:
//   - *GenerateResult: downstream post ID and status.
//   - error: ErrCandidateNotFound, ErrInvalidState, ErrLockNotAcquired, or
//     the submission failure (the candidate is then marked failed).
func (o *Orchestrator) GenerateOne(ctx context.Context, id int64) (*GenerateResult, error) {
	ctx = o.withRun(ctx, "generate_one")

	c, err := o.getCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CandidateStatusQueued {
		return nil, fmt.Errorf("%w: cannot generate from status=%s, reset flag first", ErrInvalidState, c.Status)
	}

	acquired, err := o.store.AcquireGenerationLock(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acquired {
		o.metrics.RecordLockLost()
		return nil, ErrLockNotAcquired
	}

	res, err := o.generateClaimed(ctx, id, false)
	if err != nil {
		o.fail(ctx, id, err)
		return nil, err
	}
	return &GenerateResult{CandidateID: id, PostID: res.PostID, Status: res.Status}, nil
}

// generateClaimed runs enrichment, assembly and submission for a candidate
// this worker holds the generation lock for.
func (o *Orchestrator) generateClaimed(ctx context.Context, id int64, forceEnrich bool) (*gateway.Result, error) {
	ctx = logger.WithField(ctx, logger.FieldCandidateID, id)

	c, err := o.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload candidate: %w", err)
	}
	c, err = o.enrichForGenerate(ctx, c, forceEnrich)
	if err != nil {
		return nil, err
	}

	payload, err := o.assemblePayload(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("assemble payload: %w", err)
	}
	o.archivePayload(ctx, c, payload)

	res, err := o.gateway.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}

	outcome := metrics.GenerationGenerated
	var moved bool
	if gateway.IsInFlight(res.Status) {
		outcome = metrics.GenerationSubmitted
		moved, err = o.store.MarkSubmitted(ctx, id, res.PostID)
	} else {
		moved, err = o.store.MarkGenerated(ctx, id, res.PostID)
	}
	if err != nil {
		return nil, err
	}
	if !moved {
		logger.CtxWarn(ctx, "Candidate left generating state during submission, status not updated")
	}

	if err := o.store.IncrementTodayGenerated(ctx, 1); err != nil {
		return nil, err
	}
	o.metrics.RecordGeneration(outcome)
	return res, nil
}

func (o *Orchestrator) archivePayload(ctx context.Context, c *domain.Candidate, payload *gateway.Payload) {
	if o.archive == nil {
		return
	}
	key, err := o.archive.Put(ctx, c, payload, o.now())
	if err != nil {
		o.metrics.RecordArchiveFailure()
		logger.FromContext(ctx).WithError(err).Warn("Failed to archive payload")
		return
	}
	logger.CtxDebug(ctx, "Payload archived at %s", key)
}

// fail records err on the candidate. A store failure here is only logged.
func (o *Orchestrator) fail(ctx context.Context, id int64, cause error) {
	o.metrics.RecordGeneration(metrics.GenerationFailed)
	log := logger.FromContext(ctx).WithField(logger.FieldCandidateID, id)
	log.WithError(cause).Error("Generate failed")
	if err := o.store.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.WithError(err).Error("Failed to mark candidate failed")
	}
}

func (o *Orchestrator) getCandidate(ctx context.Context, id int64) (*domain.Candidate, error) {
	c, err := o.store.GetCandidate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, err
	}
	return c, nil
}
