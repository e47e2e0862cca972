package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithAttachesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, "debug", "json")

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithChatID(ctx, 42)
	ctx = WithUserID(ctx, 7)
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" {
		t.Fatalf("trace_id missing: %v", line)
	}
	if line["chat_id"] != float64(42) || line["user_id"] != float64(7) {
		t.Fatalf("ids missing: %v", line)
	}
	if TraceID(ctx) != "trace-1" {
		t.Fatalf("TraceID returned %q", TraceID(ctx))
	}
}

func TestLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "nonsense", "json")
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be filtered at default info level: %s", buf.String())
	}
	l.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatalf("info line missing")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("привет мир", 6); got != "привет..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("short", 50); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}
}
