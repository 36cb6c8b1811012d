package util

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not json: %q (%v)", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	req := httptest.NewRequest(http.MethodPost, "/projects/admin/3/media", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))

	rl := WithRequest(base, req, "admin@example.org")
	rl.Infof("hello %s", "world")
	rl.Errorf("oops %d", 500)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	first := lines[0]
	if first["level"] != "info" || first["message"] != "hello world" {
		t.Fatalf("unexpected first line %v", first)
	}
	if first["method"] != "POST" || first["path"] != "/projects/admin/3/media" {
		t.Fatalf("expected request fields, got %v", first)
	}
	if first["request_id"] != "req-1" || first["user"] != "admin@example.org" {
		t.Fatalf("expected request id and user, got %v", first)
	}
	if lines[1]["level"] != "error" {
		t.Fatalf("expected error level, got %v", lines[1])
	}
}

func TestContextWithLoggerRoundTrip(t *testing.T) {
	t.Run("stores and retrieves logger", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rl := WithRequest(zerolog.Nop(), req, "")

		ctx := ContextWithLogger(context.Background(), rl)
		if got := FromContext(ctx); got != rl {
			t.Fatalf("expected to retrieve same logger from context")
		}
	})

	t.Run("returns nil when logger absent", func(t *testing.T) {
		if FromContext(context.Background()) != nil {
			t.Fatalf("expected background context without logger to return nil")
		}
	})

	t.Run("ignores non-logger values", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), loggerKey, "not-a-logger")
		if FromContext(ctx) != nil {
			t.Fatalf("expected non-logger value to be ignored")
		}
	})

	t.Run("ForRequest falls back", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if ForRequest(req) == nil {
			t.Fatalf("expected fallback logger")
		}
	})
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(config.Log{Level: "warn", Format: "json"}, false, &buf)

	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["message"] != "kept" {
		t.Fatalf("expected only warn line, got %v", lines)
	}
	if lines[0]["service"] != "folio" {
		t.Fatalf("expected service field, got %v", lines[0])
	}
}
