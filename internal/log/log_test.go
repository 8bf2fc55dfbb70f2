package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLogFields_ToSliceIsOrdered(t *testing.T) {
	fields := NewFields().
		WithOperation(OpSearch).
		WithComponent(ComponentView).
		WithError(nil).
		WithRequestID("")

	assert.Equal(t, []any{FieldComponent, ComponentView, FieldOperation, OpSearch}, fields.ToSlice())
}

func TestLogger_ComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Component: ComponentImport, Output: &buf})

	logger.Info("hidden")
	logger.WithComponent(ComponentTagging).Warn("shown", "n", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "component=tagging")
	assert.Contains(t, out, "n=3")
}

func TestMiddleware_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: &buf})

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "request_id=req_1")
	assert.Contains(t, buf.String(), "msg=inside")
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Output: &buf}))
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/ui/activities?q=edf", nil)

	sl.LogHTTPEnd(ctx, req, http.StatusInternalServerError, 12, "10.0.0.1", "req_2")
	sl.LogImport(ctx, 2, 10, 8, 3, "2021-04-01")
	sl.LogView(ctx, "edf", "normal", 4)
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpLoad, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "level=ERROR")
	assert.Contains(t, lines[0], "status_code=500")
	assert.Contains(t, lines[1], "inserted=8")
	assert.Contains(t, lines[2], "search=edf")
	assert.Contains(t, lines[3], `error="disk full"`)
	assert.Equal(t, 1, strings.Count(lines[3], "component="))
}
