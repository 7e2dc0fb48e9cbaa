package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ottgen/internal/config"
)

func samplePayload() *Payload {
	return &Payload{
		ContentType:     ContentTypeOTT,
		PromptTemplate:  "write about {title}",
		PromptVariables: map[string]string{"title": "Heat"},
		Images: []Image{
			{URL: "https://img/p.jpg", Type: ImageTypePoster},
			{URL: "https://img/s1.jpg", Type: ImageTypeStill},
		},
		RenderTemplate: "ott_review.html",
		AutoPublish:    true,
	}
}

func TestIsInFlight(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"queued", true},
		{" Draft ", true},
		{"PROCESSING", true},
		{"published", false},
		{"", false},
		{"failed", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInFlight(tt.status))
		})
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-post", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-admin-token"))

		var got Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "ott", got.ContentType)
		require.Len(t, got.Images, 2)
		assert.Equal(t, ImageTypePoster, got.Images[0].Type)
		assert.Equal(t, "Heat", got.PromptVariables["title"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"post_id":321,"status":"published"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPClient(srv.URL+"/", "secret", time.Second).Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	require.NotNil(t, res.PostID)
	assert.Equal(t, int64(321), *res.PostID)
	assert.Equal(t, "published", res.Status)
}

func TestHTTPClient_SubmitWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-admin-token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"post_id":null,"status":"queued"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPClient(srv.URL, "", time.Second).Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	assert.Nil(t, res.PostID)
	assert.True(t, IsInFlight(res.Status))
}

func TestHTTPClient_ErrorBodyIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("e", 5000)))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, "", time.Second).Submit(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
	assert.Less(t, len(err.Error()), 1100)
}

func TestDBQueue_Submit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	q := NewDBQueue(db)
	q.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	mock.ExpectExec(regexp.QuoteMeta(insertPost)).
		WithArgs(sqlmock.AnyArg(), "queued", "2026-03-14 09:30:00").
		WillReturnResult(sqlmock.NewResult(88, 1))
	mock.ExpectClose()

	res, err := q.Submit(context.Background(), samplePayload())
	require.NoError(t, err)
	require.NotNil(t, res.PostID)
	assert.Equal(t, int64(88), *res.PostID)
	assert.Equal(t, "queued", res.Status)

	require.NoError(t, q.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_SelectsSubmitter(t *testing.T) {
	s, closeFn, err := New(config.GatewayConfig{SubmitMode: "api", BaseURL: "http://localhost"})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &HTTPClient{}, s)

	_, _, err = New(config.GatewayConfig{SubmitMode: "carrier-pigeon"})
	assert.Error(t, err)
}
