package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("wrote kits", "path", "/tmp/cmake-kits.json", "count", 2)

	out := buf.String()
	for _, want := range []string{"INFO", "wrote kits", "path=/tmp/cmake-kits.json", "count=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output should end with newline: %q", out)
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)
	logger := slog.New(h).With("component", "reconciler").WithGroup("scope")

	logger.Info("pass", "name", "global")

	out := buf.String()
	if !strings.Contains(out, "component=reconciler") {
		t.Errorf("missing WithAttrs attribute: %q", out)
	}
	if !strings.Contains(out, "scope.name=global") {
		t.Errorf("missing grouped attribute: %q", out)
	}
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("Info should be disabled at Warn level")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("Error should be enabled at Warn level")
	}
}

func TestHandler_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	logger.Log(t.Context(), LevelTrace, "kit payload")

	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("expected TRACE level name, got %q", buf.String())
	}
}

func TestHandler_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("state backend", "redis_password", "secret12345", "env", "ghp_secrettoken")

	out := buf.String()
	if strings.Contains(out, "secret12345") || strings.Contains(out, "ghp_secrettoken") {
		t.Fatalf("secrets leaked: %q", out)
	}
	if !strings.Contains(out, "redis_password=****2345") {
		t.Errorf("expected masked key-based value, got %q", out)
	}
	if !strings.Contains(out, "env=****oken") {
		t.Errorf("expected masked prefix-based value, got %q", out)
	}
}
