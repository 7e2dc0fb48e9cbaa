package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/ottgen/internal/domain"
)

type fakeSearcher struct {
	snippets  []string
	err       error
	lastQuery string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]string, error) {
	f.lastQuery = query
	return f.snippets, f.err
}

type fakeSummarizer struct {
	text string
	err  error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, _, _, _ string) (string, error) {
	return f.text, f.err
}

func TestEnrich_Reasons(t *testing.T) {
	tests := []struct {
		name       string
		searcher   Searcher
		summarizer Summarizer
		req        domain.EnrichRequest
		want       domain.EnrichResult
	}{
		{
			name: "no search backend",
			req:  domain.EnrichRequest{Title: "Heat"},
			want: domain.EnrichResult{Reason: domain.EnrichReasonNoResults},
		},
		{
			name: "forced search without backend",
			req:  domain.EnrichRequest{Title: "Heat", ForceSearch: true},
			want: domain.EnrichResult{Reason: domain.EnrichReasonSearchKeyMissing},
		},
		{
			name:     "search finds nothing",
			searcher: &fakeSearcher{},
			req:      domain.EnrichRequest{Title: "Heat", ForceSearch: true},
			want:     domain.EnrichResult{Reason: domain.EnrichReasonNoResults},
		},
		{
			name:     "search error",
			searcher: &fakeSearcher{err: errors.New("HTTP 500")},
			req:      domain.EnrichRequest{Title: "Heat"},
			want:     domain.EnrichResult{Reason: domain.EnrichReasonNoResults},
		},
		{
			name:       "summary",
			searcher:   &fakeSearcher{snippets: []string{"a", "b"}},
			summarizer: &fakeSummarizer{text: "long synopsis"},
			req:        domain.EnrichRequest{Title: "Heat", CurrentText: "short"},
			want: domain.EnrichResult{
				Text: "long synopsis", SnippetCount: 2, AIUsed: true, Reason: domain.EnrichReasonAISummary,
			},
		},
		{
			name:     "ai required but missing",
			searcher: &fakeSearcher{snippets: []string{"a"}},
			req:      domain.EnrichRequest{Title: "Heat", ForceAI: true},
			want:     domain.EnrichResult{SnippetCount: 1, Reason: domain.EnrichReasonAIKeyMissing},
		},
		{
			name:     "fallback merge",
			searcher: &fakeSearcher{snippets: []string{"first  part", "second part"}},
			req:      domain.EnrichRequest{Title: "Heat", CurrentText: "short"},
			want: domain.EnrichResult{
				Text: "first part second part", SnippetCount: 2, Reason: domain.EnrichReasonFallbackMerged,
			},
		},
		{
			name:       "summary error falls back to merge",
			searcher:   &fakeSearcher{snippets: []string{"plot"}},
			summarizer: &fakeSummarizer{err: errors.New("timeout")},
			req:        domain.EnrichRequest{Title: "Heat"},
			want: domain.EnrichResult{
				Text: "plot", SnippetCount: 1, AIUsed: true, Reason: domain.EnrichReasonFallbackMerged,
			},
		},
		{
			name:     "merge equals current",
			searcher: &fakeSearcher{snippets: []string{"same plot"}},
			req:      domain.EnrichRequest{Title: "Heat", CurrentText: " same\n plot "},
			want: domain.EnrichResult{
				Text: "same plot", SnippetCount: 1, Reason: domain.EnrichReasonSameAsCurrent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.searcher, tt.summarizer, 5)
			got := svc.Enrich(context.Background(), tt.req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrich_FallbackIsCapped(t *testing.T) {
	long := strings.Repeat("가", 1000)
	svc := New(&fakeSearcher{snippets: []string{long}}, nil, 5)

	got := svc.Enrich(context.Background(), domain.EnrichRequest{Title: "x"})
	assert.Equal(t, domain.EnrichReasonFallbackMerged, got.Reason)
	assert.Equal(t, fallbackMaxRunes, len([]rune(got.Text)))
}

func TestEnrich_QueryUsesMediaHint(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := New(searcher, nil, 5)

	svc.Enrich(context.Background(), domain.EnrichRequest{
		Title: "Dark", Year: "2017", Genres: "Drama, Mystery", MediaKind: domain.MediaKindSeries,
	})
	assert.True(t, strings.HasPrefix(searcher.lastQuery, "Dark 2017 드라마 줄거리 Drama"))
}

func TestReasonApplied(t *testing.T) {
	assert.True(t, domain.EnrichReasonAISummary.Applied())
	assert.True(t, domain.EnrichReasonFallbackMerged.Applied())
	assert.False(t, domain.EnrichReasonSameAsCurrent.Applied())
	assert.False(t, domain.EnrichReasonNoResults.Applied())
}
