package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/timmy/ottgen/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a candidate lookup matches no row.
var ErrNotFound = errors.New("candidate not found")

// mergeColumns are refreshed when a queued or failed candidate is rediscovered.
var mergeColumns = []string{
	"source", "title", "overview", "original_overview", "enriched_overview",
	"rating", "genres", "release_year", "provider_names", "poster_url", "still_urls",
	"status", "error_message", "updated_at",
}

// sourcePriority ranks latest-pass items ahead of backfill, then everything else.
const sourcePriority = "CASE WHEN source LIKE 'latest%' THEN 0 WHEN source LIKE 'backfill%' THEN 1 ELSE 2 END"

// CandidateStore owns the candidates, crawler_state and daily_stats tables.
// Every status transition is a single conditional statement, so the store
// stays correct with several processes sharing one database.
type CandidateStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCandidateStore creates a new CandidateStore.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CandidateStore: store bound to db using the UTC wall clock.
func NewCandidateStore(db *gorm.DB) *CandidateStore {
	return &CandidateStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the store that reads time from now.
func (s *CandidateStore) WithClock(now func() time.Time) *CandidateStore {
	return &CandidateStore{db: s.db, now: func() time.Time { return now().UTC() }}
}

// Today returns the store's current UTC date as YYYY-MM-DD.
func (s *CandidateStore) Today() string {
	return domain.UTCDate(s.now())
}

// UpsertCandidate inserts c, or refreshes the existing row with the same
// (catalog_id, media_kind) while that row is queued or failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - c: discovered metadata; status and error are reset by the store.
// Returns:
//   - bool: false when the existing row is claimed by the pipeline and was left untouched.
//   - error: non-nil if the write fails.
func (s *CandidateStore) UpsertCandidate(ctx context.Context, c *domain.Candidate) (bool, error) {
	now := s.now()
	c.Status = domain.CandidateStatusQueued
	c.ErrorMessage = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.StillURLs == nil {
		c.StillURLs = []string{}
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "catalog_id"}, {Name: "media_kind"}},
		DoUpdates: clause.AssignmentColumns(mergeColumns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "candidates.status IN (?, ?)",
				Vars: []interface{}{domain.CandidateStatusQueued, domain.CandidateStatusFailed},
			},
		}},
	}).Create(c)
	if result.Error != nil {
		return false, fmt.Errorf("upsert candidate %d/%s: %w", c.CatalogID, c.MediaKind, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListCandidates returns one page of candidates in status, most recently updated first.
func (s *CandidateStore) ListCandidates(ctx context.Context, status domain.CandidateStatus, limit, offset, minOverviewLength int) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	err := s.filtered(ctx, status, minOverviewLength).
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(max(0, offset)).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// CountCandidates counts candidates in status whose overview passes the length filter.
func (s *CandidateStore) CountCandidates(ctx context.Context, status domain.CandidateStatus, minOverviewLength int) (int64, error) {
	var count int64
	err := s.filtered(ctx, status, minOverviewLength).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of candidates per status.
func (s *CandidateStore) CountByStatus(ctx context.Context) (map[domain.CandidateStatus]int64, error) {
	var rows []struct {
		Status domain.CandidateStatus
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.CandidateStatus]int64, len(domain.AllCandidateStatuses))
	for _, st := range domain.AllCandidateStatuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (s *CandidateStore) filtered(ctx context.Context, status domain.CandidateStatus, minOverviewLength int) *gorm.DB {
	return s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("status = ?", status).
		Where("LENGTH(overview) >= ?", max(0, minOverviewLength))
}

// GetCandidate retrieves a candidate by ID.
// Returns:
//   - *domain.Candidate: candidate record if found.
//   - error: ErrNotFound if no row matches.
func (s *CandidateStore) GetCandidate(ctx context.Context, id int64) (*domain.Candidate, error) {
	var c domain.Candidate
	if err := s.db.WithContext(ctx).Take(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// NextQueued selects up to limit queued candidates for generation:
// latest-pass sources first, then backfill, then the rest, oldest update first within a tier.
func (s *CandidateStore) NextQueued(ctx context.Context, limit, minOverviewLength int) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	err := s.filtered(ctx, domain.CandidateStatusQueued, minOverviewLength).
		Order(sourcePriority).
		Order("updated_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// AcquireGenerationLock flips id from queued to generating.
// It returns false when the row is missing or another caller claimed it first.
func (s *CandidateStore) AcquireGenerationLock(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("id = ? AND status = ?", id, domain.CandidateStatusQueued).
		Updates(map[string]interface{}{
			"status":     domain.CandidateStatusGenerating,
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("acquire generation lock %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// UpdateOverviewTexts replaces the descriptive text fields without touching status.
func (s *CandidateStore) UpdateOverviewTexts(ctx context.Context, id int64, overview, original, enriched string) error {
	return s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"overview":          overview,
			"original_overview": original,
			"enriched_overview": enriched,
			"updated_at":        s.now(),
		}).Error
}

// MarkSubmitted records that the downstream gateway accepted the work but has not finished it.
func (s *CandidateStore) MarkSubmitted(ctx context.Context, id int64, downstreamID *int64) (bool, error) {
	return s.finishGeneration(ctx, id, domain.CandidateStatusSubmitted, downstreamID)
}

// MarkGenerated records that the downstream gateway produced the content.
func (s *CandidateStore) MarkGenerated(ctx context.Context, id int64, downstreamID *int64) (bool, error) {
	return s.finishGeneration(ctx, id, domain.CandidateStatusGenerated, downstreamID)
}

// finishGeneration only moves rows still in generating; a concurrent reset wins.
func (s *CandidateStore) finishGeneration(ctx context.Context, id int64, status domain.CandidateStatus, downstreamID *int64) (bool, error) {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("id = ? AND status = ?", id, domain.CandidateStatusGenerating).
		Updates(map[string]interface{}{
			"status":             status,
			"generated_at":       now,
			"downstream_post_id": downstreamID,
			"error_message":      nil,
			"updated_at":         now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark %s %d: %w", status, id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed moves id to failed from any status and stores a truncated error message.
// Marking an already failed candidate again only replaces the message.
func (s *CandidateStore) MarkFailed(ctx context.Context, id int64, errText string) error {
	msg := domain.TruncateError(errText)
	err := s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.CandidateStatusFailed,
			"error_message": msg,
			"updated_at":    s.now(),
		}).Error
	if err != nil {
		return fmt.Errorf("mark failed %d: %w", id, err)
	}
	return nil
}

// ResetToQueued clears generation state and puts id back in the queue.
// It returns false if no candidate has that ID.
func (s *CandidateStore) ResetToQueued(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Model(&domain.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             domain.CandidateStatusQueued,
			"generated_at":       nil,
			"downstream_post_id": nil,
			"error_message":      nil,
			"updated_at":         s.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("reset candidate %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteCandidate removes id. It returns false if no candidate has that ID.
func (s *CandidateStore) DeleteCandidate(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&domain.Candidate{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete candidate %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ListRecentGenerated returns the candidates most recently handed downstream.
func (s *CandidateStore) ListRecentGenerated(ctx context.Context, limit int) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	err := s.db.WithContext(ctx).
		Where("status IN ?", []domain.CandidateStatus{domain.CandidateStatusGenerated, domain.CandidateStatusSubmitted}).
		Where("generated_at IS NOT NULL").
		Order("generated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// TodayGeneratedCount returns the number of generations recorded for the current UTC day.
// A day without a row counts as zero.
func (s *CandidateStore) TodayGeneratedCount(ctx context.Context) (int, error) {
	var stat domain.DailyStat
	err := s.db.WithContext(ctx).Take(&stat, "date = ?", s.Today()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return stat.GeneratedCount, nil
}

// IncrementTodayGenerated atomically adds n to the current UTC day's counter.
func (s *CandidateStore) IncrementTodayGenerated(ctx context.Context, n int) error {
	now := s.now()
	stat := domain.DailyStat{Date: domain.UTCDate(now), GeneratedCount: n, UpdatedAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"generated_count": gorm.Expr("daily_stats.generated_count + ?", n),
			"updated_at":      now,
		}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("increment daily counter: %w", err)
	}
	return nil
}

// GetState returns the stored value for key, or fallback when absent or empty.
func (s *CandidateStore) GetState(ctx context.Context, key, fallback string) (string, error) {
	var state domain.CrawlerState
	err := s.db.WithContext(ctx).Take(&state, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fallback, nil
		}
		return fallback, err
	}
	if state.Value == "" {
		return fallback, nil
	}
	return state.Value, nil
}

// GetStateInt is GetState parsed as an integer; unparsable values yield fallback.
func (s *CandidateStore) GetStateInt(ctx context.Context, key string, fallback int) (int, error) {
	raw, err := s.GetState(ctx, key, strconv.Itoa(fallback))
	if err != nil {
		return fallback, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

// SetState stores value under key, replacing any previous value.
func (s *CandidateStore) SetState(ctx context.Context, key, value string) error {
	now := s.now()
	state := domain.CrawlerState{Key: key, Value: value, UpdatedAt: now}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *CandidateStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
