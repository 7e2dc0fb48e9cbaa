package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/ottgen/internal/config"
)

// Image types carried in a payload.
const (
	ImageTypePoster = "poster"
	ImageTypeStill  = "still"
)

// ContentTypeOTT tags payloads produced by this pipeline.
const ContentTypeOTT = "ott"

// Image is one ordered image reference in a payload.
type Image struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Payload is the generation request handed to the downstream writer.
type Payload struct {
	ContentType     string            `json:"content_type"`
	PromptTemplate  string            `json:"prompt_template"`
	PromptVariables map[string]string `json:"prompt_variables"`
	Images          []Image           `json:"images"`
	RenderTemplate  string            `json:"render_template"`
	AutoPublish     bool              `json:"auto_publish"`
	SystemRole      string            `json:"system_role"`
}

// Result is the downstream acknowledgement of a submission.
type Result struct {
	PostID *int64 `json:"post_id"`
	Status string `json:"status"`
}

// Submitter hands a payload to the downstream generator.
type Submitter interface {
	Submit(ctx context.Context, payload *Payload) (*Result, error)
}

// IsInFlight reports whether a downstream status means the work is accepted
// but not finished yet.
func IsInFlight(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "draft", "processing":
		return true
	default:
		return false
	}
}

// New builds the Submitter selected by cfg.SubmitMode.
// Returns:
//   - Submitter: HTTP or database queue submitter.
//   - func(): releases resources held by the submitter.
//   - error: non-nil for an unknown mode or a queue connection failure.
func New(cfg config.GatewayConfig) (Submitter, func(), error) {
	switch strings.ToLower(cfg.SubmitMode) {
	case "", "api":
		return NewHTTPClient(cfg.BaseURL, cfg.AdminToken, cfg.Timeout), func() {}, nil
	case "db_queue":
		q, err := OpenDBQueue(cfg.QueueDSN)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported gateway submit mode %q", cfg.SubmitMode)
	}
}
