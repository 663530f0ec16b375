package installation

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
)

// defaultRootName is the directory the Qt online installer creates.
const defaultRootName = "Qt"

// DefaultRoots returns the installation roots checked when none is
// configured, in priority order. It fails with errors.ErrUnsupportedPlatform
// on hosts the Qt installer does not target.
func DefaultRoots(goos string) ([]string, error) {
	return defaultRoots(goos, paths.Home(), os.Getenv)
}

func defaultRoots(goos, home string, getenv func(string) string) ([]string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "darwin":
		roots := []string{
			filepath.Join(home, defaultRootName),
			filepath.Join(home, "dev", defaultRootName),
			filepath.Join("/", "opt", defaultRootName),
		}
		if goos == "darwin" {
			roots = append(roots,
				filepath.Join("/", "Applications", defaultRootName),
				filepath.Join(home, "Applications", defaultRootName),
			)
		}
		return roots, nil

	case "windows":
		drive := "C:"
		if windir := getenv("WINDIR"); len(windir) >= 2 && windir[1] == ':' {
			drive = windir[:2]
		}
		roots := []string{
			winJoin(drive, defaultRootName),
			winJoin(drive, "dev", defaultRootName),
		}
		if user := getenv("USERNAME"); user != "" {
			roots = append(roots, winJoin(drive, "Users", user, defaultRootName))
		}
		if profile := getenv("USERPROFILE"); profile != "" {
			roots = append(roots, winJoin(profile, defaultRootName))
		}
		if sysDrive := getenv("SYSTEMDRIVE"); sysDrive != "" {
			roots = append(roots, winJoin(sysDrive, defaultRootName))
		}
		homeDrive, homePath := getenv("HOMEDRIVE"), getenv("HOMEPATH")
		if homeDrive != "" && homePath != "" {
			roots = append(roots, winJoin(homeDrive+homePath, defaultRootName))
		}
		return roots, nil
	}

	return nil, errors.WithDetailf(errors.ErrUnsupportedPlatform, "host OS %q", goos)
}

// winJoin joins Windows path elements with backslashes regardless of the
// host separator.
func winJoin(elem ...string) string {
	out := ""
	for _, e := range elem {
		switch {
		case e == "":
			continue
		case out == "" || strings.HasSuffix(out, `\`):
			out += e
		default:
			out += `\` + e
		}
	}
	return out
}

// FindDefaultRoot returns the first existing default root for the running
// host. It returns "" when none exists.
func FindDefaultRoot() (string, error) {
	roots, err := DefaultRoots(runtime.GOOS)
	if err != nil {
		return "", err
	}
	for _, r := range roots {
		if dirExists(r) {
			return r, nil
		}
	}
	return "", nil
}
