package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ottgen/internal/prompts"
)

// OpenAISummarizer condenses search snippets into a synopsis with an
// OpenAI-compatible chat completion endpoint.
type OpenAISummarizer struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewOpenAISummarizer creates a summarizer.
// Parameters:
//   - apiKey: bearer token for the endpoint.
//   - baseURL: API base URL; empty uses https://api.openai.com/v1.
//   - model: chat model name.
//   - timeout: per-request timeout.
// Returns:
//   - *OpenAISummarizer: initialized client.
func NewOpenAISummarizer(apiKey, baseURL, model string, timeout time.Duration) *OpenAISummarizer {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &OpenAISummarizer{
		client:   client,
		model:    model,
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Summarize asks the model for a chronological synopsis of sourceText.
// Returns:
//   - string: normalized synopsis; may be empty.
//   - error: non-nil if the API request fails.
func (s *OpenAISummarizer) Summarize(ctx context.Context, title, year, current, sourceText string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.SummarySystemPrompt},
			{Role: "user", Content: prompts.SummaryUserPrompt(title, year, current, sourceText)},
		},
		Temperature: 0.2,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call summary API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), excerpt(httpResp.String()))
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("summary API returned error: %s", errorMsg)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("summary API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in summary response (status: %d)", httpResp.StatusCode())
	}

	return normalize(resp.Choices[0].Message.Content), nil
}
