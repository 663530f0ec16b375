package validator

import (
	"fmt"
	"strings"
)

// Severity represents the impact of a validation issue.
type Severity int

const (
	// SeverityError indicates a registry CMake Tools cannot use as is.
	SeverityError Severity = iota
	// SeverityWarning indicates a kit that will likely fail to configure.
	SeverityWarning
	// SeverityInfo indicates an informational note.
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue is a single problem found in a registry.
type Issue struct {
	Severity Severity `json:"severity"`
	// Index is the position of the entry in the registry.
	Index int `json:"index"`
	// Kit is the entry name, empty for unnamed entries.
	Kit string `json:"kit,omitempty"`
	// Field is the kit field at fault, when there is one.
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	var sb strings.Builder
	sb.WriteString(i.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(i.subject())
	sb.WriteString(": ")
	if i.Field != "" {
		sb.WriteString(i.Field)
		sb.WriteString(": ")
	}
	sb.WriteString(i.Message)
	if i.Value != nil {
		fmt.Fprintf(&sb, " (got %v)", i.Value)
	}
	return sb.String()
}

// subject names what the issue is about. Index -1 is the registry itself.
func (i Issue) subject() string {
	switch {
	case i.Kit != "":
		return fmt.Sprintf("kit %q", i.Kit)
	case i.Index < 0:
		return "registry"
	default:
		return fmt.Sprintf("entry %d", i.Index)
	}
}

// Result aggregates the issues found in one registry.
type Result struct {
	Path   string  `json:"path"`
	Kits   int     `json:"kits"`
	Issues []Issue `json:"issues"`
}

func (r *Result) add(sev Severity, index int, name, field, message string, value any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Index:    index,
		Kit:      name,
		Field:    field,
		Message:  message,
		Value:    value,
	})
}

// Filter returns the issues of one severity.
func (r *Result) Filter(sev Severity) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors returns true if any issue has SeverityError.
func (r *Result) HasErrors() bool {
	return len(r.Filter(SeverityError)) > 0
}

// HasWarnings returns true if any issue has SeverityWarning.
func (r *Result) HasWarnings() bool {
	return len(r.Filter(SeverityWarning)) > 0
}
