package logging

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestColorAllowed(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		isTTY bool
		want  bool
	}{
		{name: "terminal", isTTY: true, want: true},
		{name: "pipe", isTTY: false, want: false},
		{name: "NO_COLOR", env: map[string]string{"NO_COLOR": ""}, isTTY: true, want: false},
		{name: "dumb terminal", env: map[string]string{"TERM": "dumb"}, isTTY: true, want: false},
		{name: "forced on pipe", env: map[string]string{"CLICOLOR_FORCE": "1"}, want: true},
		{name: "force disabled", env: map[string]string{"CLICOLOR_FORCE": "0"}, want: false},
		{name: "NO_COLOR beats force", env: map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", "xterm-256color")
			t.Setenv("CLICOLOR_FORCE", "")
			unsetenv(t, "NO_COLOR")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, colorAllowed(tt.isTTY))
		})
	}
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestConfigureColor(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })
	unsetenv(t, "NO_COLOR")
	t.Setenv("CLICOLOR_FORCE", "")

	ConfigureColor(&bytes.Buffer{})
	assert.True(t, color.NoColor)
}

func TestMultiHandler(t *testing.T) {
	var text, js bytes.Buffer
	logger := slog.New(NewMultiHandler(
		NewHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("component", "watch").WithGroup("scope")

	logger.Debug("toolset candidates", "count", 4)
	assert.Empty(t, text.String())
	assert.Contains(t, js.String(), `"component":"watch"`)
	assert.Contains(t, js.String(), `"scope":{"count":4}`)

	logger.Warn("registry unreadable", "path", "/w/.vscode/cmake-kits.json")
	assert.Contains(t, text.String(), "component=watch")
	assert.Contains(t, text.String(), "scope.path=/w/.vscode/cmake-kits.json")
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}
