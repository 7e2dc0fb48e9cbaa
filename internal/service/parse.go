package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/metrics"
	"github.com/timmy/ottgen/internal/source"
)

// ParseResult summarizes one discovery run.
type ParseResult struct {
	Queued           int  `json:"queued"`
	SkippedProvider  int  `json:"skipped_provider"`
	SkippedImages    int  `json:"skipped_images"`
	SkippedDuplicate int  `json:"skipped_duplicate"`
	Failed           int  `json:"failed"`
	LatestIncluded   bool `json:"latest_included"`
	LatestPages      int  `json:"latest_pages"`
	BackfillPages    int  `json:"backfill_pages"`
}

// discoveryPlan is the set of items a run will filter, plus the state to
// persist once every page was fetched.
type discoveryPlan struct {
	items          []source.Item
	latestIncluded bool
	latestPages    int
	backfillPages  int
	today          string
	cursors        map[domain.MediaKind]int
}

// ParseSources runs the daily latest pass (once per UTC day) and the backfill
// sweep, then filters every discovered item into the candidate store.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *ParseResult: per-outcome counts and discovery-pass metadata.
//   - error: non-nil if a page fetch or a store write fails.
func (o *Orchestrator) ParseSources(ctx context.Context) (*ParseResult, error) {
	ctx = o.withRun(ctx, "parse")
	start := time.Now()

	plan, err := o.collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.commitPlan(ctx, plan); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(plan.items),
		"latest_included": plan.latestIncluded,
		"latest_pages":    plan.latestPages,
		"backfill_pages":  plan.backfillPages,
	}).Info(ctx, "Discovery pages fetched")

	result := &ParseResult{
		LatestIncluded: plan.latestIncluded,
		LatestPages:    plan.latestPages,
		BackfillPages:  plan.backfillPages,
	}

	seen := make(map[domain.Key]struct{}, len(plan.items))
	for _, item := range plan.items {
		key := domain.Key{CatalogID: item.CatalogID, MediaKind: item.MediaKind}
		if _, dup := seen[key]; dup {
			o.recordParse(item, metrics.ParseSkippedDuplicate)
			result.SkippedDuplicate++
			continue
		}
		seen[key] = struct{}{}

		outcome, err := o.ingestItem(ctx, item)
		if err != nil {
			return nil, err
		}
		o.recordParse(item, outcome)
		switch outcome {
		case metrics.ParseQueued:
			result.Queued++
		case metrics.ParseSkippedProvider:
			result.SkippedProvider++
		case metrics.ParseSkippedImages:
			result.SkippedImages++
		case metrics.ParseSkippedDuplicate:
			result.SkippedDuplicate++
		case metrics.ParseFailed:
			result.Failed++
		}
	}

	o.metrics.RecordParseRun(time.Since(start))
	logger.With(logger.Fields{
		"queued":            result.Queued,
		"skipped_provider":  result.SkippedProvider,
		"skipped_images":    result.SkippedImages,
		"skipped_duplicate": result.SkippedDuplicate,
		"failed":            result.Failed,
	}).Since(start).Info(ctx, "Parse finished")

	return result, nil
}

func (o *Orchestrator) recordParse(item source.Item, outcome string) {
	o.metrics.RecordParseItem(string(item.MediaKind), outcome)
}

// collect fetches every page of the run without touching persisted state.
func (o *Orchestrator) collect(ctx context.Context) (*discoveryPlan, error) {
	plan := &discoveryPlan{
		today:   o.store.Today(),
		cursors: make(map[domain.MediaKind]int, len(domain.AllMediaKinds)),
	}

	lastLatest, err := o.store.GetState(ctx, domain.StateKeyLatestParseDate, "")
	if err != nil {
		return nil, err
	}

	if lastLatest != plan.today {
		pages := max(1, o.cfg.Discovery.LatestDailyPages)
		for _, kind := range domain.AllMediaKinds {
			sortKey := o.source.LatestSortKey(kind)
			for page := 1; page <= pages; page++ {
				items, _, err := o.source.FetchPage(ctx, kind, page, sortKey, fmt.Sprintf("latest_daily_p%d", page))
				if err != nil {
					return nil, fmt.Errorf("latest %s page %d: %w", kind, page, err)
				}
				plan.items = append(plan.items, items...)
				plan.latestPages++
			}
		}
		plan.latestIncluded = true
	}

	perRun := max(1, o.cfg.Discovery.BackfillPagesPerRun)
	for _, kind := range domain.AllMediaKinds {
		cursor, err := o.store.GetStateInt(ctx, domain.BackfillStateKey(kind), 1)
		if err != nil {
			return nil, err
		}
		cursor = max(1, cursor)
		for i := 0; i < perRun; i++ {
			items, totalPages, err := o.source.FetchPage(ctx, kind, cursor, o.cfg.Discovery.BackfillSortBy, fmt.Sprintf("backfill_p%d", cursor))
			if err != nil {
				return nil, fmt.Errorf("backfill %s page %d: %w", kind, cursor, err)
			}
			plan.items = append(plan.items, items...)
			plan.backfillPages++
			cursor = nextBackfillPage(cursor, totalPages)
		}
		plan.cursors[kind] = cursor
	}

	return plan, nil
}

// nextBackfillPage advances the sweep, wrapping to page 1 past the last page.
func nextBackfillPage(current, totalPages int) int {
	next := current + 1
	if next > max(1, totalPages) {
		return 1
	}
	return next
}

func (o *Orchestrator) commitPlan(ctx context.Context, plan *discoveryPlan) error {
	if plan.latestIncluded {
		if err := o.store.SetState(ctx, domain.StateKeyLatestParseDate, plan.today); err != nil {
			return err
		}
	}
	for _, kind := range domain.AllMediaKinds {
		cursor, ok := plan.cursors[kind]
		if !ok {
			continue
		}
		if err := o.store.SetState(ctx, domain.BackfillStateKey(kind), strconv.Itoa(cursor)); err != nil {
			return err
		}
	}
	return nil
}

// ingestItem filters one discovered item and upserts it.
// Catalog lookup failures are an outcome, store failures are returned.
func (o *Orchestrator) ingestItem(ctx context.Context, item source.Item) (string, error) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldCatalogID: item.CatalogID,
		logger.FieldMediaKind: item.MediaKind,
		logger.FieldSource:    item.Source,
	})

	providers, err := o.source.FetchProviders(ctx, item.MediaKind, item.CatalogID)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch providers")
		return metrics.ParseFailed, nil
	}
	if !o.carriedByTarget(providers) {
		return metrics.ParseSkippedProvider, nil
	}

	details, err := o.source.FetchDetails(ctx, item.MediaKind, item.CatalogID)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch details")
		return metrics.ParseFailed, nil
	}
	images, err := o.source.FetchImages(ctx, item.MediaKind, item.CatalogID)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch images")
		return metrics.ParseFailed, nil
	}

	poster := details.PosterURL
	if poster == "" {
		poster = images.PosterURL
	}
	stills := selectStills(poster, images.BackdropURLs, o.cfg.Discovery.MaxStills)
	if len(stills) < o.cfg.Discovery.MinStills {
		return metrics.ParseSkippedImages, nil
	}

	overview := strings.TrimSpace(details.Overview)
	changed, err := o.store.UpsertCandidate(ctx, &domain.Candidate{
		CatalogID:        item.CatalogID,
		MediaKind:        item.MediaKind,
		Source:           item.Source,
		Title:            details.Title,
		Overview:         overview,
		OriginalOverview: overview,
		Rating:           details.Rating,
		Genres:           details.Genres,
		ReleaseYear:      details.ReleaseYear,
		ProviderNames:    strings.Join(providers, ", "),
		PosterURL:        poster,
		StillURLs:        stills,
	})
	if err != nil {
		return "", err
	}
	if !changed {
		return metrics.ParseSkippedDuplicate, nil
	}
	return metrics.ParseQueued, nil
}

func (o *Orchestrator) carriedByTarget(providers []string) bool {
	for _, name := range providers {
		if _, ok := o.providers[strings.ToLower(strings.TrimSpace(name))]; ok {
			return true
		}
	}
	return false
}

// selectStills keeps distinct backdrop URLs other than the poster, up to limit.
// A non-positive limit keeps all of them.
func selectStills(poster string, backdrops []string, limit int) []string {
	seen := map[string]struct{}{}
	if poster != "" {
		seen[poster] = struct{}{}
	}
	stills := make([]string, 0, len(backdrops))
	for _, u := range backdrops {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		stills = append(stills, u)
		if limit > 0 && len(stills) >= limit {
			break
		}
	}
	return stills
}
