package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
)

var testKits = []kit.Kit{
	{Name: "Qt-6.5.0-gcc_64"},
	{Name: "Qt-6.5.0-wasm_singlethread"},
	{Name: "Qt-6.6.1-gcc_64"},
}

func TestSelectKit_Empty(t *testing.T) {
	t.Parallel()
	s := NewSelectorWithIO(strings.NewReader(""), &bytes.Buffer{})

	_, err := s.SelectKit("", nil)
	assert.ErrorIs(t, err, ErrNoKits)

	_, err = s.SelectKit("msvc", testKits)
	assert.ErrorIs(t, err, ErrNoKits)
}

func TestSelectKit_ExactAndSingle(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := NewSelectorWithIO(strings.NewReader(""), &buf)

	k, err := s.SelectKit("Qt-6.5.0-gcc_64", testKits)
	require.NoError(t, err)
	assert.Equal(t, "Qt-6.5.0-gcc_64", k.Name)

	k, err = s.SelectKit("WASM", testKits)
	require.NoError(t, err)
	assert.Equal(t, "Qt-6.5.0-wasm_singlethread", k.Name)

	assert.Empty(t, buf.String(), "no prompt for a single match")
}

func TestSelectKit_Numbered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "default", input: "\n", want: "Qt-6.5.0-gcc_64"},
		{name: "second", input: "2\n", want: "Qt-6.6.1-gcc_64"},
		{name: "no newline", input: "2", want: "Qt-6.6.1-gcc_64"},
		{name: "out of range", input: "3\n", wantErr: ErrInvalidSelection},
		{name: "not a number", input: "x\n", wantErr: ErrInvalidSelection},
		{name: "eof", input: "", wantErr: ErrSelectionCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			s := NewSelectorWithIO(strings.NewReader(tt.input), &buf)

			k, err := s.SelectKit("gcc", testKits)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.Name)
			assert.Contains(t, buf.String(), `Multiple kits match "gcc"`)
			assert.Contains(t, buf.String(), "[2] Qt-6.6.1-gcc_64")
		})
	}
}

func TestSelectKit_Interactive(t *testing.T) {
	t.Parallel()

	s := &Selector{
		interactive: true,
		find: func(kits []kit.Kit) (int, error) {
			return len(kits) - 1, nil
		},
	}
	k, err := s.SelectKit("", testKits)
	require.NoError(t, err)
	assert.Equal(t, "Qt-6.6.1-gcc_64", k.Name)

	s.find = func([]kit.Kit) (int, error) { return 0, fuzzyfinder.ErrAbort }
	_, err = s.SelectKit("", testKits)
	assert.ErrorIs(t, err, ErrSelectionCancelled)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	k := kit.Kit{
		Name:          "Qt-6.5.0-gcc_64",
		Generator:     &kit.Generator{Name: "Ninja"},
		ToolchainFile: "/qt/lib/cmake/Qt6/qt.toolchain.cmake",
		EnvironmentVariables: map[string]string{
			"VSCODE_QT_INSTALLATION": "/qt/6.5.0/gcc_64",
			"LICENSE_TOKEN":          "abcdef123456",
		},
	}

	got := Preview(k)
	assert.Contains(t, got, "Generator: Ninja")
	assert.Contains(t, got, "Toolchain: /qt/lib/cmake/Qt6/qt.toolchain.cmake")
	assert.Contains(t, got, "VSCODE_QT_INSTALLATION=/qt/6.5.0/gcc_64")
	assert.Contains(t, got, "LICENSE_TOKEN=****3456")
	assert.NotContains(t, got, "abcdef")
	assert.Less(t, strings.Index(got, "LICENSE_TOKEN"), strings.Index(got, "VSCODE_QT"))
}
