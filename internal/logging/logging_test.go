package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn"})

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}
	logger.Warn("loud")
	if rec := decode(t, &buf); rec["msg"] != "loud" {
		t.Errorf("expected msg loud, got %v", rec["msg"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{Format: "text"}).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got %s", buf.String())
	}
}

func TestTraceHandler_AddsSpanAndRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-7")

	logger.With("component", "test").InfoContext(ctx, "traced")

	rec := decode(t, &buf)
	if rec["trace_id"] != traceID.String() {
		t.Errorf("expected trace_id %s, got %v", traceID, rec["trace_id"])
	}
	if rec["span_id"] != spanID.String() {
		t.Errorf("expected span_id %s, got %v", spanID, rec["span_id"])
	}
	if rec["request_id"] != "req-7" {
		t.Errorf("expected request_id req-7, got %v", rec["request_id"])
	}
	if rec["component"] != "test" {
		t.Errorf("expected component attr to survive WithAttrs, got %v", rec["component"])
	}
}

func TestTraceHandler_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Options{}).InfoContext(context.Background(), "plain")

	rec := decode(t, &buf)
	if _, ok := rec["trace_id"]; ok {
		t.Error("expected no trace_id without a span")
	}
	if _, ok := rec["request_id"]; ok {
		t.Error("expected no request_id outside a request")
	}
}

// recorder captures what reaches a handler.
type recorder struct {
	msgs []string
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	r.msgs = append(r.msgs, rec.Message)
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recorder) WithGroup(string) slog.Handler      { return r }

func TestNew_OTelKeepsStdoutAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn", OTelService: "civixity-test"})

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}
	logger.With("component", "test").Warn("loud")
	rec := decode(t, &buf)
	if rec["msg"] != "loud" || rec["component"] != "test" {
		t.Errorf("expected warn record on stdout, got %v", rec)
	}
}

func TestLevelHandler_FiltersBridge(t *testing.T) {
	var buf bytes.Buffer
	bridge := &recorder{}
	h := fanout{
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		&levelHandler{level: slog.LevelInfo, Handler: bridge},
	}
	logger := slog.New(h)

	logger.Debug("hidden")
	logger.Info("shown")

	if len(bridge.msgs) != 1 || bridge.msgs[0] != "shown" {
		t.Errorf("expected only info to reach the bridge, got %v", bridge.msgs)
	}
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected only info on stdout, got %s", buf.String())
	}
}
