package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestWithRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := New(&buf, "info", "json")

	ctx, id := WithRequest(context.Background(), base)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q: %v", id, err)
	}

	FromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != id || entry["msg"] != "hello" {
		t.Fatalf("entry=%v", entry)
	}
}

func TestFromContext_Default(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}
