package ctxlog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContext_MissingLoggerDiscards(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("expected a logger")
	}
	l.Info("dropped")
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New("debug", "json", &buf))
	FromContext(ctx).Debug("analyzing", "file", "main.tx")

	out := buf.String()
	if !strings.Contains(out, `"msg":"analyzing"`) || !strings.Contains(out, `"file":"main.tx"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "text", &buf)
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %s", buf.String())
	}
}
