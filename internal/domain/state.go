package domain

import (
	"fmt"
	"time"
)

// Well-known CrawlerState keys owned by the orchestrator.
const (
	StateKeyLatestParseDate   = "latest_parse_ymd"
	StateKeyStyleRecipeCursor = "style_recipe_cursor"
	stateKeyBackfillPrefix    = "backfill_page_"
)

// BackfillStateKey returns the key holding the next backfill page for kind.
func BackfillStateKey(kind MediaKind) string {
	return fmt.Sprintf("%s%s", stateKeyBackfillPrefix, kind)
}

// CrawlerState is a generic persisted key/value pair (cursors, rotation counters).
type CrawlerState struct {
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for CrawlerState.
func (CrawlerState) TableName() string {
	return "crawler_state"
}

// DailyStat counts generations handed downstream on one UTC calendar day.
type DailyStat struct {
	Date           string    `gorm:"type:text;primaryKey" json:"date"`
	GeneratedCount int       `gorm:"not null;default:0" json:"generated_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailyStat.
func (DailyStat) TableName() string {
	return "daily_stats"
}

// DateLayout is the YYYY-MM-DD layout used for DailyStat.Date and the latest-parse marker.
const DateLayout = "2006-01-02"

// UTCDate formats t as a UTC calendar date.
func UTCDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
