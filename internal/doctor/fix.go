package doctor

import (
	"fmt"
	"os"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// Fixer is implemented by checks that doctor --fix can repair. CanFix and
// Fix report on the issues found by the most recent Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult is the outcome of repairing one path.
type FixResult struct {
	Path        string
	Fixed       bool
	Description string
	Error       error
}

// unsafeBits are cleared from registry files and directories. Group and
// other keep read access so editors and CMake Tools still work.
const unsafeBits os.FileMode = 0o022

// PermissionFixer clears group and world write access on the paths that
// PermissionCheck flagged.
type PermissionFixer struct {
	issues []pathIssue
}

// CanFix reports whether the last run found anything to repair.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// CountFixable returns the number of repairable paths.
func (f *PermissionFixer) CountFixable() int {
	n := 0
	for _, issue := range f.issues {
		if issue.Fixable {
			n++
		}
	}
	return n
}

// Fix repairs every fixable path. A path that changed since the check ran
// is re-read so the new mode is derived from its current permissions.
func (f *PermissionFixer) Fix() []FixResult {
	var results []FixResult
	for _, issue := range f.issues {
		if issue.Fixable {
			results = append(results, restrict(issue.Path))
		}
	}
	return results
}

func restrict(path string) FixResult {
	info, err := os.Stat(path)
	if err != nil {
		return FixResult{
			Path:        path,
			Description: "path disappeared before it could be fixed",
			Error:       errors.Wrapf(err, "stat %s", path),
		}
	}
	from := info.Mode().Perm()
	to := from &^ unsafeBits
	if from == to {
		return FixResult{Path: path, Fixed: true, Description: "already restricted"}
	}
	if err := os.Chmod(path, to); err != nil {
		return FixResult{
			Path:        path,
			Description: fmt.Sprintf("chmod %04o failed", to),
			Error:       errors.Wrapf(err, "chmod %04o %s", to, path),
		}
	}
	return FixResult{Path: path, Fixed: true, Description: fmt.Sprintf("%04o -> %04o", from, to)}
}
