package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/logger"
)

// EnrichOneResult reports a forced enrichment of one candidate.
type EnrichOneResult struct {
	CandidateID    int64               `json:"candidate_id"`
	Enriched       bool                `json:"enriched"`
	OverviewLength int                 `json:"overview_length"`
	SnippetCount   int                 `json:"snippet_count"`
	AIUsed         bool                `json:"ai_used"`
	Reason         domain.EnrichReason `json:"reason"`
}

// ResetGeneratedFlag puts a candidate back in the queue, clearing prior generation state.
func (o *Orchestrator) ResetGeneratedFlag(ctx context.Context, id int64) error {
	ctx = o.withRun(ctx, "reset")
	found, err := o.store.ResetToQueued(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrCandidateNotFound
	}
	logger.FromContext(ctx).WithField(logger.FieldCandidateID, id).Info("Candidate reset to queued")
	return nil
}

// DeleteCandidate removes a candidate. A later discovery may queue it again.
func (o *Orchestrator) DeleteCandidate(ctx context.Context, id int64) error {
	ctx = o.withRun(ctx, "delete")
	found, err := o.store.DeleteCandidate(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrCandidateNotFound
	}
	logger.FromContext(ctx).WithField(logger.FieldCandidateID, id).Info("Candidate deleted")
	return nil
}

// EnrichOne forces search and summarization for a candidate regardless of its
// current overview length, and persists the result when it differs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: candidate ID.
// Returns:
//   - *EnrichOneResult: whether the stored text changed, plus diagnostics.
//   - error: ErrCandidateNotFound or a store failure. Enrichment failures are
//     reported through Reason, not as an error.
func (o *Orchestrator) EnrichOne(ctx context.Context, id int64) (*EnrichOneResult, error) {
	ctx = o.withRun(ctx, "enrich")

	c, err := o.getCandidate(ctx, id)
	if err != nil {
		return nil, err
	}

	res, changed, err := o.applyEnrichment(ctx, c, true)
	if err != nil {
		return nil, err
	}

	updated, err := o.getCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EnrichOneResult{
		CandidateID:    id,
		Enriched:       changed,
		OverviewLength: utf8.RuneCountInString(strings.TrimSpace(updated.Overview)),
		SnippetCount:   res.SnippetCount,
		AIUsed:         res.AIUsed,
		Reason:         res.Reason,
	}, nil
}

// enrichForGenerate enriches c before submission when enrichment is enabled.
// Unless force is set, only overviews shorter than the configured minimum are enriched.
func (o *Orchestrator) enrichForGenerate(ctx context.Context, c *domain.Candidate, force bool) (*domain.Candidate, error) {
	if !o.cfg.Enrich.Enabled {
		return c, nil
	}
	if !force && utf8.RuneCountInString(c.BaseOverview()) >= o.cfg.Enrich.OverviewMinLength {
		return c, nil
	}

	_, changed, err := o.applyEnrichment(ctx, c, false)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}
	return o.store.GetCandidate(ctx, c.ID)
}

// applyEnrichment calls the enricher and stores a non-empty result that differs
// from the base overview as overview=enriched, original=base.
func (o *Orchestrator) applyEnrichment(ctx context.Context, c *domain.Candidate, forced bool) (domain.EnrichResult, bool, error) {
	base := c.BaseOverview()
	res := o.enricher.Enrich(ctx, domain.EnrichRequest{
		Title:       c.Title,
		Year:        c.ReleaseYear,
		CurrentText: base,
		Genres:      c.Genres,
		MediaKind:   c.MediaKind,
		ForceSearch: forced,
		ForceAI:     forced,
	})
	o.metrics.RecordEnrich(string(res.Reason))

	text := strings.TrimSpace(res.Text)
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldCandidateID: c.ID,
		logger.FieldReason:      res.Reason,
	})
	if text == "" || text == base {
		log.Info("Overview not enriched")
		return res, false, nil
	}

	if err := o.store.UpdateOverviewTexts(ctx, c.ID, text, base, text); err != nil {
		return res, false, err
	}
	log.Info("Overview enriched")
	return res, true, nil
}
