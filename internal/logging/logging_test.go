package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", input, got, want)
		}
	}
}

func TestNewWithWriterAddsServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "Tailored API", "test")
	logger.Debug("hidden")
	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["service"] != "Tailored API" || entry["env"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "svc", "test")

	handler := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["method"] != "GET" || entry["path"] != "/brew" {
		t.Fatalf("unexpected request fields: %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("status = %v", entry["status"])
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Fatalf("bytes = %v", entry["bytes"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Fatalf("expected request id in %v", entry)
	}
}
