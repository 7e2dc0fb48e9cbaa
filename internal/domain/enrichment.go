package domain

// EnrichReason explains the outcome of an overview enrichment attempt.
// The set is closed; callers switch on it rather than on free-form text.
type EnrichReason string

const (
	// EnrichReasonNoResults means the web search returned nothing usable.
	EnrichReasonNoResults EnrichReason = "tavily_no_results"
	// EnrichReasonSearchKeyMissing means search was required but no key is configured.
	EnrichReasonSearchKeyMissing EnrichReason = "tavily_key_missing"
	// EnrichReasonAIKeyMissing means search succeeded but summarization was required and unavailable.
	EnrichReasonAIKeyMissing EnrichReason = "ai_key_missing"
	// EnrichReasonAISummary means the text came from the summarizer.
	EnrichReasonAISummary EnrichReason = "ai_summary"
	// EnrichReasonFallbackMerged means the text is a concatenation of search snippets.
	EnrichReasonFallbackMerged EnrichReason = "fallback_merged"
	// EnrichReasonSameAsCurrent means the result equals the existing text and is not applied.
	EnrichReasonSameAsCurrent EnrichReason = "same_as_current"
)

// Applied reports whether the reason carries new text worth persisting.
func (r EnrichReason) Applied() bool {
	return r == EnrichReasonAISummary || r == EnrichReasonFallbackMerged
}

// EnrichRequest describes the candidate being enriched.
type EnrichRequest struct {
	Title       string
	Year        string
	CurrentText string
	Genres      string
	MediaKind   MediaKind
	ForceSearch bool
	ForceAI     bool
}

// EnrichResult is the outcome of one enrichment attempt.
type EnrichResult struct {
	Text         string       `json:"text"`
	SnippetCount int          `json:"snippet_count"`
	AIUsed       bool         `json:"ai_used"`
	Reason       EnrichReason `json:"reason"`
}
