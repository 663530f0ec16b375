// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
)

// Sentinel errors for kit selection.
var (
	ErrNoKits             = errors.New("no kits to select from")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Selector handles interactive kit selection prompts. On a terminal it
// opens a fuzzy finder; otherwise it prints a numbered list and reads the
// choice from its reader.
type Selector struct {
	reader      io.Reader
	writer      io.Writer
	interactive bool
	find        func(kits []kit.Kit) (int, error)
}

// NewSelector creates a new Selector using stdin and stdout.
func NewSelector() *Selector {
	return &Selector{
		reader:      os.Stdin,
		writer:      os.Stdout,
		interactive: logging.IsTTY(os.Stdin) && logging.IsTTY(os.Stdout),
		find:        fuzzyFind,
	}
}

// NewSelectorWithIO creates a non-interactive Selector with custom reader and
// writer for testing.
func NewSelectorWithIO(r io.Reader, w io.Writer) *Selector {
	return &Selector{
		reader: r,
		writer: w,
	}
}

// SelectKit picks one of kits. query filters kits by case-insensitive
// name substring first; an exact name match wins outright.
//
// Returns:
//   - ErrNoKits if nothing matches
//   - The kit if only one matches (auto-selects without prompting)
//   - The selected kit based on user input
//   - ErrInvalidSelection if the selection is out of range
//   - ErrSelectionCancelled if input is EOF or the finder was aborted
func (s *Selector) SelectKit(query string, kits []kit.Kit) (*kit.Kit, error) {
	if k, ok := kit.Find(kits, query); ok {
		return &k, nil
	}

	matches := filter(kits, query)
	if len(matches) == 0 {
		return nil, ErrNoKits
	}
	if len(matches) == 1 {
		return &matches[0], nil
	}

	if s.interactive && s.find != nil {
		idx, err := s.find(matches)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil, ErrSelectionCancelled
			}
			return nil, errors.Wrap(err, "interactive selection failed")
		}
		return &matches[idx], nil
	}

	return s.readChoice(query, matches)
}

func (s *Selector) readChoice(query string, kits []kit.Kit) (*kit.Kit, error) {
	if query == "" {
		fmt.Fprintln(s.writer, "Select a kit:")
	} else {
		fmt.Fprintf(s.writer, "Multiple kits match %q:\n", query)
	}
	for i, k := range kits {
		fmt.Fprintf(s.writer, "  [%d] %s\n", i+1, k.Name)
	}
	fmt.Fprintf(s.writer, "Select [1]: ")

	reader := bufio.NewReader(s.reader)
	input, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(input) == "" {
			return nil, ErrSelectionCancelled
		}
		if !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "reading selection")
		}
	}

	input = strings.TrimSpace(input)

	// Default to first option if empty
	if input == "" {
		return &kits[0], nil
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}

	// Validate range (1-indexed)
	if selection < 1 || selection > len(kits) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(kits))
	}

	return &kits[selection-1], nil
}

func filter(kits []kit.Kit, query string) []kit.Kit {
	if query == "" {
		return kits
	}
	q := strings.ToLower(query)
	var out []kit.Kit
	for _, k := range kits {
		if strings.Contains(strings.ToLower(k.Name), q) {
			out = append(out, k)
		}
	}
	return out
}

func fuzzyFind(kits []kit.Kit) (int, error) {
	return fuzzyfinder.Find(
		kits,
		func(i int) string {
			return kits[i].Name
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return Preview(kits[i])
		}),
	)
}

// Preview renders a short description of k for the finder's preview pane.
// Environment values that look like credentials are masked.
func Preview(k kit.Kit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", k.Name)
	if k.Generator != nil {
		fmt.Fprintf(&b, "Generator: %s\n", k.Generator.Name)
	}
	if k.ToolchainFile != "" {
		fmt.Fprintf(&b, "Toolchain: %s\n", k.ToolchainFile)
	}
	if k.VisualStudio != "" {
		fmt.Fprintf(&b, "Visual Studio: %s (%s)\n", k.VisualStudio, k.VisualStudioArchitecture)
	}
	if env := logging.MaskSecrets(k.EnvironmentVariables); len(env) > 0 {
		b.WriteString("\nEnvironment:\n")
		for _, key := range sortedKeys(env) {
			fmt.Fprintf(&b, "  %s=%s\n", key, env[key])
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
