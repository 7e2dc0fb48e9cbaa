package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 1000

// HTTPClient submits payloads to the downstream POST /generate-post endpoint.
type HTTPClient struct {
	client   *resty.Client
	endpoint string
}

var _ Submitter = (*HTTPClient)(nil)

// NewHTTPClient creates a gateway client. An empty adminToken sends no token header.
func NewHTTPClient(baseURL, adminToken string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	if adminToken != "" {
		client.SetHeader("x-admin-token", adminToken)
	}

	return &HTTPClient{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/generate-post",
	}
}

// Submit posts payload and returns the downstream post ID and status.
func (c *HTTPClient) Submit(ctx context.Context, payload *Payload) (*Result, error) {
	var result Result
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call generate-post: %w", err)
	}
	if resp.StatusCode() >= 400 {
		body := []rune(resp.String())
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("generate-post failed: status=%d, body=%s", resp.StatusCode(), string(body))
	}
	return &result, nil
}
