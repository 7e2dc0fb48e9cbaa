package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&Config{Level: "debug", Format: format, Output: &buf, ServiceName: "ottgen-test"}), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestNew_JSONFieldNames(t *testing.T) {
	l, buf := newBufferLogger("json")
	l.WithField(FieldCandidateID, 12).Info("hello")

	line := lastLine(t, buf)
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "ottgen-test", line["service"])
	assert.EqualValues(t, 12, line[FieldCandidateID])
	assert.NotEmpty(t, line["timestamp"])
}

func TestNew_TextFormat(t *testing.T) {
	l, buf := newBufferLogger("TEXT")
	l.Warn("plain")
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), `msg=plain`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "loud", Output: &buf})
	l.Debug("hidden")
	assert.Empty(t, buf.String())
	l.Info("shown")
	assert.NotEmpty(t, buf.String())
}

func TestContextPropagation(t *testing.T) {
	l, buf := newBufferLogger("json")
	ctx := l.WithContext(context.Background())
	ctx = SetRunID(ctx, "run-1")
	ctx = SetComponent(ctx, "parse")
	ctx = WithFields(ctx, Fields{FieldMediaKind: "movie"})

	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Empty(t, GetRequestID(ctx))

	CtxInfo(ctx, "queued %d", 3)
	line := lastLine(t, buf)
	assert.Equal(t, "queued 3", line["message"])
	assert.Equal(t, "run-1", line[FieldRunID])
	assert.Equal(t, "parse", line[FieldComponent])
	assert.Equal(t, "movie", line[FieldMediaKind])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(nil))
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}

func TestEntry_MetricFields(t *testing.T) {
	l, buf := newBufferLogger("json")
	ctx := l.WithContext(context.Background())

	base := With(Fields{FieldCount: 2})
	base.With(Fields{FieldStatus: "ok"}).Since(time.Now().Add(-50*time.Millisecond)).Error(ctx, "done")

	line := lastLine(t, buf)
	assert.Equal(t, "error", line["level"])
	assert.EqualValues(t, 2, line[FieldCount])
	assert.Equal(t, "ok", line[FieldStatus])
	assert.GreaterOrEqual(t, line[FieldDurationMs].(float64), float64(50))

	// With copies, it never mutates the receiver.
	assert.NotContains(t, base.fields, FieldStatus)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_MAX_SIZE", "12")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("LOG_MAX_AGE", "not-a-number")

	cfg := ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "ottgen", cfg.ServiceName)
	assert.Equal(t, 12, cfg.MaxSize)
	assert.False(t, cfg.Compress)
	assert.Equal(t, 30, cfg.MaxAge)
}

func TestNew_WritesRotatedFileOutsideLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := New(&Config{Level: "info", Environment: "prod", LogFile: path, LogFileOnly: true, MaxSize: 1})
	l.Info("to file")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
