// Package doctor provides diagnostic checks for qtkit installations, kit
// registries and reconciliation state.
package doctor

import "github.com/thoreinstein/qtkit/internal/errors"

// Severity indicates the importance level of a check result. It is encoded
// by name in JSON reports.
type Severity int

const (
	SeverityPass Severity = iota
	SeverityInfo
	// SeverityWarning marks a setup that works but will likely produce
	// fewer kits than expected.
	SeverityWarning
	// SeverityError marks a setup sync cannot work with.
	SeverityError
)

var severityNames = [...]string{"pass", "info", "warning", "error"}

// String returns the string representation of the severity level.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	for i, name := range severityNames {
		if name == string(text) {
			*s = Severity(i)
			return nil
		}
	}
	return errors.Newf("unknown severity %q", text)
}

// CheckResult represents the outcome of a single diagnostic check.
type CheckResult struct {
	Name string `json:"name"`

	// Category groups related checks: config, registry, qt, state, tools.
	Category string   `json:"category"`
	Status   Severity `json:"status"`
	Message  string   `json:"message"`

	// Details depend on the check, e.g. "path" for registry checks or
	// "installations" for the installation root check.
	Details map[string]any `json:"details,omitempty"`

	// Fixable is set when doctor --fix can repair the issue.
	Fixable bool   `json:"fixable,omitempty"`
	FixHint string `json:"fix_hint,omitempty"`
}

// Summary aggregates counts of check results by severity.
type Summary struct {
	Passed   int `json:"passed"`
	Info     int `json:"info"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

func (s *Summary) add(sev Severity) {
	switch sev {
	case SeverityPass:
		s.Passed++
	case SeverityInfo:
		s.Info++
	case SeverityWarning:
		s.Warnings++
	case SeverityError:
		s.Errors++
	}
}
