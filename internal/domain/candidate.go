package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// CandidateStatus represents the lifecycle status of a candidate.
// Values include CandidateStatusQueued, CandidateStatusGenerating, CandidateStatusSubmitted,
// CandidateStatusGenerated, and CandidateStatusFailed.
type CandidateStatus string

const (
	CandidateStatusQueued     CandidateStatus = "queued"
	CandidateStatusGenerating CandidateStatus = "generating"
	CandidateStatusSubmitted  CandidateStatus = "submitted"
	CandidateStatusGenerated  CandidateStatus = "generated"
	CandidateStatusFailed     CandidateStatus = "failed"
)

// AllCandidateStatuses lists every status in dashboard tab order.
var AllCandidateStatuses = []CandidateStatus{
	CandidateStatusQueued,
	CandidateStatusGenerating,
	CandidateStatusSubmitted,
	CandidateStatusGenerated,
	CandidateStatusFailed,
}

// Valid reports whether s is one of the known statuses.
func (s CandidateStatus) Valid() bool {
	for _, known := range AllCandidateStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Mergeable reports whether a re-discovered candidate in this status may
// have its metadata refreshed. Claimed rows belong to the pipeline.
func (s CandidateStatus) Mergeable() bool {
	return s == CandidateStatusQueued || s == CandidateStatusFailed
}

// MediaKind is the catalog media type of a candidate.
type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "series"
)

// AllMediaKinds lists the media kinds swept by discovery, in sweep order.
var AllMediaKinds = []MediaKind{MediaKindMovie, MediaKindSeries}

// ParseMediaKind maps catalog spellings ("movie", "tv", "series") to a MediaKind.
func ParseMediaKind(raw string) (MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie":
		return MediaKindMovie, true
	case "tv", "series":
		return MediaKindSeries, true
	default:
		return "", false
	}
}

// MaxErrorMessageLength bounds the stored error text, in characters.
const MaxErrorMessageLength = 2000

// TruncateError shortens msg to at most MaxErrorMessageLength characters.
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLength {
		return msg
	}
	return string(runes[:MaxErrorMessageLength])
}

// Candidate is one discovered media item tracked through the generation pipeline.
// (CatalogID, MediaKind) is unique and never changes after the row is created.
type Candidate struct {
	ID               int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	CatalogID        int64                       `gorm:"not null;uniqueIndex:idx_candidates_catalog_kind" json:"catalog_id"`
	MediaKind        MediaKind                   `gorm:"type:text;not null;uniqueIndex:idx_candidates_catalog_kind" json:"media_kind"`
	Source           string                      `gorm:"type:text;not null" json:"source"`
	Title            string                      `gorm:"type:text;not null" json:"title"`
	Overview         string                      `gorm:"type:text;not null;default:''" json:"overview"`
	OriginalOverview string                      `gorm:"type:text;not null;default:''" json:"original_overview"`
	EnrichedOverview string                      `gorm:"type:text;not null;default:''" json:"enriched_overview"`
	Rating           string                      `gorm:"type:text;not null;default:''" json:"rating"`
	Genres           string                      `gorm:"type:text;not null;default:''" json:"genres"`
	ReleaseYear      string                      `gorm:"type:text;not null;default:''" json:"release_year"`
	ProviderNames    string                      `gorm:"type:text;not null;default:''" json:"provider_names"`
	PosterURL        string                      `gorm:"type:text;not null;default:''" json:"poster_url"`
	StillURLs        datatypes.JSONSlice[string] `json:"still_urls"`
	Status           CandidateStatus             `gorm:"type:text;not null;default:queued;index:idx_candidates_status" json:"status"`
	GeneratedAt      *time.Time                  `json:"generated_at,omitempty"`
	DownstreamPostID *int64                      `json:"downstream_post_id,omitempty"`
	ErrorMessage     *string                     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"index:idx_candidates_updated" json:"updated_at"`
}

// TableName returns the database table name for Candidate.
func (Candidate) TableName() string {
	return "candidates"
}

// BaseOverview returns the text enrichment starts from: the discovered
// overview when present, otherwise whatever is currently stored.
func (c *Candidate) BaseOverview() string {
	if base := strings.TrimSpace(c.OriginalOverview); base != "" {
		return base
	}
	return strings.TrimSpace(c.Overview)
}

// Key identifies a candidate by its catalog identity.
type Key struct {
	CatalogID int64
	MediaKind MediaKind
}

// Key returns the candidate's unique catalog key.
func (c *Candidate) Key() Key {
	return Key{CatalogID: c.CatalogID, MediaKind: c.MediaKind}
}
