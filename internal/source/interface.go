package source

import (
	"context"

	"github.com/timmy/ottgen/internal/domain"
)

// Item is one raw result of a discovery page, attributed with its provenance.
type Item struct {
	CatalogID int64
	MediaKind domain.MediaKind
	Source    string // provenance tag, e.g. latest_daily_p1 or backfill_p3
}

// Details holds the descriptive metadata of a catalog entry.
type Details struct {
	Title       string
	Overview    string
	Rating      string
	Genres      string
	ReleaseYear string
	PosterURL   string // absolute URL, empty when the entry has no poster
}

// Images holds absolute image URLs of a catalog entry in catalog order.
type Images struct {
	PosterURL    string
	BackdropURLs []string
}

// DiscoverySource defines the catalog that candidates are discovered from.
type DiscoverySource interface {
	// FetchPage fetches one page of a discovery query.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - kind: media kind to query.
	//   - page: 1-based page number.
	//   - sortKey: catalog sort order, e.g. popularity.desc.
	//   - sourceTag: provenance tag attached to every returned item.
	// Returns:
	//   - items: page items, capped at the configured per-page limit.
	//   - totalPages: page count reported by the catalog, at least 1.
	//   - err: non-nil if fetching fails.
	FetchPage(ctx context.Context, kind domain.MediaKind, page int, sortKey, sourceTag string) (items []Item, totalPages int, err error)

	// FetchDetails returns the descriptive metadata for one entry.
	FetchDetails(ctx context.Context, kind domain.MediaKind, catalogID int64) (*Details, error)

	// FetchProviders returns the flat-rate provider display names for the configured region.
	FetchProviders(ctx context.Context, kind domain.MediaKind, catalogID int64) ([]string, error)

	// FetchImages returns the backdrop images for one entry.
	FetchImages(ctx context.Context, kind domain.MediaKind, catalogID int64) (*Images, error)

	// LatestSortKey returns the sort order that lists the newest releases of kind first.
	LatestSortKey(kind domain.MediaKind) string
}
