package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/source"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p/original"
	imageLanguages      = "ko,en,null"
	maxErrorBody        = 1000
)

// Config holds TMDB client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Language          string
	Region            string
	ImageBaseURL      string
	PerPageLimit      int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client implements source.DiscoverySource against the TMDB v3 API.
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	region    string
	imageBase string
	perPage   int
}

var _ source.DiscoverySource = (*Client)(nil)

// NewClient creates a new TMDB client.
// Parameters:
//   - cfg: API key, locale and pacing settings.
// Returns:
//   - *Client: client with retries on 429 and 5xx responses.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = defaultImageBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetQueryParam("api_key", cfg.APIKey).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	if cfg.Language != "" {
		client.SetQueryParam("language", cfg.Language)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http:      client,
		limiter:   rate.NewLimiter(limit, 1),
		region:    cfg.Region,
		imageBase: strings.TrimRight(imageBase, "/"),
		perPage:   cfg.PerPageLimit,
	}
}

// kindPath maps a media kind to its TMDB path segment.
func kindPath(kind domain.MediaKind) string {
	if kind == domain.MediaKindSeries {
		return "tv"
	}
	return "movie"
}

// LatestSortKey orders movies by release date and series by first air date.
func (c *Client) LatestSortKey(kind domain.MediaKind) string {
	if kind == domain.MediaKindSeries {
		return "first_air_date.desc"
	}
	return "release_date.desc"
}

type discoverResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
	TotalPages int `json:"total_pages"`
}

// FetchPage fetches one /discover page and tags each item with sourceTag.
func (c *Client) FetchPage(ctx context.Context, kind domain.MediaKind, page int, sortKey, sourceTag string) ([]source.Item, int, error) {
	var resp discoverResponse
	params := map[string]string{
		"sort_by": sortKey,
		"page":    strconv.Itoa(max(1, page)),
	}
	if c.region != "" {
		params["region"] = c.region
	}
	if err := c.get(ctx, "/discover/"+kindPath(kind), params, &resp); err != nil {
		return nil, 0, err
	}

	results := resp.Results
	if c.perPage > 0 && len(results) > c.perPage {
		results = results[:c.perPage]
	}
	items := make([]source.Item, 0, len(results))
	for _, r := range results {
		items = append(items, source.Item{CatalogID: r.ID, MediaKind: kind, Source: sourceTag})
	}
	return items, max(1, resp.TotalPages), nil
}

type detailsResponse struct {
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// FetchDetails returns title, overview, rating, genres, year and poster for one entry.
func (c *Client) FetchDetails(ctx context.Context, kind domain.MediaKind, catalogID int64) (*source.Details, error) {
	var resp detailsResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", kindPath(kind), catalogID), nil, &resp); err != nil {
		return nil, err
	}

	title := resp.Title
	if title == "" {
		title = resp.Name
	}
	var genres []string
	for _, g := range resp.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	date := resp.ReleaseDate
	if date == "" {
		date = resp.FirstAirDate
	}
	year := date
	if len(year) > 4 {
		year = year[:4]
	}
	rating := ""
	if resp.VoteAverage > 0 {
		rating = strconv.FormatFloat(resp.VoteAverage, 'f', -1, 64)
	}

	return &source.Details{
		Title:       title,
		Overview:    strings.TrimSpace(resp.Overview),
		Rating:      rating,
		Genres:      strings.Join(genres, ", "),
		ReleaseYear: year,
		PosterURL:   c.imageURL(resp.PosterPath),
	}, nil
}

type providersResponse struct {
	Results map[string]struct {
		Flatrate []struct {
			ProviderName string `json:"provider_name"`
		} `json:"flatrate"`
	} `json:"results"`
}

// FetchProviders returns the flat-rate providers for the configured region.
func (c *Client) FetchProviders(ctx context.Context, kind domain.MediaKind, catalogID int64) ([]string, error) {
	var resp providersResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/watch/providers", kindPath(kind), catalogID), nil, &resp); err != nil {
		return nil, err
	}

	region, ok := resp.Results[c.region]
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(region.Flatrate))
	for _, p := range region.Flatrate {
		if name := strings.TrimSpace(p.ProviderName); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

type imagePath struct {
	FilePath string `json:"file_path"`
}

type imagesResponse struct {
	Posters   []imagePath `json:"posters"`
	Backdrops []imagePath `json:"backdrops"`
}

// FetchImages returns the first poster and every backdrop URL for one entry.
func (c *Client) FetchImages(ctx context.Context, kind domain.MediaKind, catalogID int64) (*source.Images, error) {
	var resp imagesResponse
	params := map[string]string{"include_image_language": imageLanguages}
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/images", kindPath(kind), catalogID), params, &resp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(resp.Backdrops))
	for _, b := range resp.Backdrops {
		if u := c.imageURL(b.FilePath); u != "" {
			urls = append(urls, u)
		}
	}
	images := &source.Images{BackdropURLs: urls}
	if len(resp.Posters) > 0 {
		images.PosterURL = c.imageURL(resp.Posters[0].FilePath)
	}
	return images, nil
}

func (c *Client) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.imageBase + path
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("failed to call TMDB %s: %w", path, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("TMDB %s returned HTTP %d: %s", path, resp.StatusCode(), body)
	}
	return nil
}
