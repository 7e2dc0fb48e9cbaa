package enrich

import (
	"context"
	"strings"

	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/prompts"
)

const (
	fallbackMaxRunes = 800
	maxMergedSnippet = 10
	maxErrorExcerpt  = 1000
)

// Searcher returns plot snippets for a web query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Summarizer turns raw snippets into a synopsis.
type Summarizer interface {
	Summarize(ctx context.Context, title, year, current, sourceText string) (string, error)
}

// Service enriches thin overviews with web search and optional summarization.
// Failures of either backend are logged and reported through the result reason.
type Service struct {
	searcher    Searcher
	summarizer  Summarizer
	maxSnippets int
}

// New creates a Service. A nil searcher or summarizer means that backend is not configured.
func New(searcher Searcher, summarizer Summarizer, maxSnippets int) *Service {
	if maxSnippets <= 0 {
		maxSnippets = 5
	}
	return &Service{searcher: searcher, summarizer: summarizer, maxSnippets: maxSnippets}
}

// NewFromConfig wires Tavily and the OpenAI summarizer when their keys are present.
func NewFromConfig(cfg config.EnrichConfig) *Service {
	var (
		searcher   Searcher
		summarizer Summarizer
	)
	if cfg.TavilyAPIKey != "" {
		searcher = NewTavilyClient(cfg.TavilyAPIKey, cfg.TavilyBaseURL, cfg.Timeout)
	}
	if cfg.AISummary && cfg.OpenAIAPIKey != "" {
		summarizer = NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout)
	}
	return New(searcher, summarizer, cfg.MaxSnippets)
}

// Enrich searches for the title's plot and returns a replacement overview.
// It never fails: an unusable outcome is an empty or unchanged Text with a reason.
func (s *Service) Enrich(ctx context.Context, req domain.EnrichRequest) domain.EnrichResult {
	current := normalize(req.CurrentText)

	snippets := s.search(ctx, req)
	if len(snippets) == 0 {
		reason := domain.EnrichReasonNoResults
		if req.ForceSearch && s.searcher == nil {
			reason = domain.EnrichReasonSearchKeyMissing
		}
		return domain.EnrichResult{Reason: reason}
	}

	aiUsed := false
	if s.summarizer != nil {
		aiUsed = true
		summary, err := s.summarizer.Summarize(ctx, req.Title, req.Year, current, mergeSnippets(snippets))
		if err != nil {
			logger.With(logger.Fields{logger.FieldReason: "summary_failed"}).
				Warn(ctx, "Overview summary failed for %q: %v", req.Title, err)
		} else if summary != "" && summary != current {
			return domain.EnrichResult{
				Text:         summary,
				SnippetCount: len(snippets),
				AIUsed:       true,
				Reason:       domain.EnrichReasonAISummary,
			}
		}
	} else if req.ForceAI {
		return domain.EnrichResult{SnippetCount: len(snippets), Reason: domain.EnrichReasonAIKeyMissing}
	}

	fallback := normalize(truncateRunes(strings.Join(snippets, " "), fallbackMaxRunes))
	if fallback != "" && fallback != current {
		return domain.EnrichResult{
			Text:         fallback,
			SnippetCount: len(snippets),
			AIUsed:       aiUsed,
			Reason:       domain.EnrichReasonFallbackMerged,
		}
	}
	return domain.EnrichResult{
		Text:         current,
		SnippetCount: len(snippets),
		AIUsed:       aiUsed,
		Reason:       domain.EnrichReasonSameAsCurrent,
	}
}

func (s *Service) search(ctx context.Context, req domain.EnrichRequest) []string {
	if s.searcher == nil {
		return nil
	}
	query := prompts.SearchQuery(req.Title, req.Year, req.MediaKind == domain.MediaKindSeries, req.Genres)
	snippets, err := s.searcher.Search(ctx, query, s.maxSnippets)
	if err != nil {
		logger.With(logger.Fields{logger.FieldReason: "search_failed"}).
			Warn(ctx, "Overview search failed for %q: %v", req.Title, err)
		return nil
	}
	return snippets
}

func mergeSnippets(snippets []string) string {
	if len(snippets) > maxMergedSnippet {
		snippets = snippets[:maxMergedSnippet]
	}
	lines := make([]string, 0, len(snippets))
	for _, s := range snippets {
		lines = append(lines, "- "+s)
	}
	return strings.Join(lines, "\n")
}

// normalize collapses every whitespace run to a single space.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func excerpt(body string) string {
	return truncateRunes(body, maxErrorExcerpt)
}
