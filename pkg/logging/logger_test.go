package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

func TestSlog_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON(), WithLevel(slog.LevelDebug))

	logger.With(String("form", "level2")).Info("submit accepted", Int("fields", 9))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "submit accepted", entry["msg"])
	assert.Equal(t, "level2", entry["form"])
	assert.Equal(t, float64(9), entry["fields"])
}

func TestSlog_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithLevel(slog.LevelWarn))

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestL_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, DefaultLogger, L(context.Background()))

	nop := NopLogger{}
	ctx := ContextWithLogger(context.Background(), nop)
	assert.Equal(t, Logger(nop), L(ctx))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON())

	var seen Logger
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = L(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/level2", nil))

	assert.NotNil(t, seen)
	assert.NotEqual(t, DefaultLogger, seen)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/level2"`)
}

func TestRequestLogger_QuietPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithJSON())
	h := RequestLogger(logger, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Zero(t, buf.Len(), "probe requests log at debug")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), `"msg":"request completed"`)
}
