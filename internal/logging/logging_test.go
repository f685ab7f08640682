package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text", &bytes.Buffer{})
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be disabled by default")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be enabled by default")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text", &bytes.Buffer{})
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("Expected warn level to be disabled at error level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New("info", "json", &buf).Info("hello", "tenant_id", "t-1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if line["tenant_id"] != "t-1" {
		t.Errorf("tenant_id = %v", line["tenant_id"])
	}
}

func TestNew_AddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	New("info", "json", &buf).With("component", "test").InfoContext(ctx, "traced")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", line["trace_id"], span.SpanContext().TraceID())
	}
	if line["component"] != "test" {
		t.Errorf("attributes added with With were lost: %v", line)
	}
}

func TestRequests_LogsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(Requests(logger))
	router.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status=503", "path=/boom", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}
