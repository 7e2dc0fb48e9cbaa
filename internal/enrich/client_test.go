package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilyClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tv-key", req.APIKey)
		assert.Equal(t, "advanced", req.SearchDepth)
		assert.Equal(t, 2, req.MaxResults)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","content":"first\n result"},
			{"title":"A","content":"first result"},
			{"title":"","content":""},
			{"title":"B","content":"second"},
			{"title":"C","content":"third"}]}`))
	}))
	defer srv.Close()

	client := NewTavilyClient("tv-key", srv.URL, time.Second)
	snippets, err := client.Search(context.Background(), "Heat 1995", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A first result", "B second"}, snippets)
}

func TestTavilyClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := NewTavilyClient("bad", srv.URL, time.Second).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestOpenAISummarizer_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1-mini", req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "작품명: Heat")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  synopsis\n\ntext "}}]}`))
	}))
	defer srv.Close()

	s := NewOpenAISummarizer("sk-test", srv.URL, "gpt-4.1-mini", time.Second)
	got, err := s.Summarize(context.Background(), "Heat", "1995", "", "- snippet")
	require.NoError(t, err)
	assert.Equal(t, "synopsis text", got)
}

func TestOpenAISummarizer_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAISummarizer("k", srv.URL, "m", time.Second).Summarize(context.Background(), "t", "y", "c", "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429: rate limited")
}
