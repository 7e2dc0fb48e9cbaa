package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TavilyClient searches the web through the Tavily search API.
type TavilyClient struct {
	client   *resty.Client
	apiKey   string
	endpoint string
}

// NewTavilyClient creates a Tavily search client.
// Parameters:
//   - apiKey: Tavily API key.
//   - baseURL: API base URL; empty uses https://api.tavily.com.
//   - timeout: per-request timeout.
// Returns:
//   - *TavilyClient: initialized search client.
func NewTavilyClient(apiKey, baseURL string, timeout time.Duration) *TavilyClient {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &TavilyClient{
		client:   client,
		apiKey:   apiKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/search",
	}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResult struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search returns up to maxResults distinct, whitespace-normalized snippets for query.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	req := tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "advanced",
	}

	var resp tavilyResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call Tavily API: %w", err)
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, fmt.Errorf("Tavily API returned error: HTTP %d: %s",
			httpResp.StatusCode(), excerpt(httpResp.String()))
	}

	snippets := make([]string, 0, len(resp.Results))
	seen := make(map[string]struct{}, len(resp.Results))
	for _, r := range resp.Results {
		text := normalize(strings.Join([]string{r.Title, r.Content, r.RawContent}, " "))
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		snippets = append(snippets, text)
		if maxResults > 0 && len(snippets) >= maxResults {
			break
		}
	}
	return snippets, nil
}
