package installation

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
)

// versionDirRe matches Qt version directories: 6.5, 6.5.0.
var versionDirRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// markerBinaries identify a toolchain directory as a Qt installation.
var markerBinaries = []string{"qmake", "qtpaths"}

// Discover returns the Qt installations under root, sorted. A missing root
// yields no installations and no error.
func Discover(root string) ([]string, error) {
	return discover(root, runtime.GOOS)
}

func discover(root, goos string) ([]string, error) {
	if root == "" {
		return nil, nil
	}

	versions, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading installation root %s", root)
	}

	var found []string
	for _, v := range versions {
		if !v.IsDir() || !versionDirRe.MatchString(v.Name()) {
			continue
		}
		versionDir := filepath.Join(root, v.Name())
		toolchains, err := os.ReadDir(versionDir)
		if err != nil {
			continue
		}
		for _, tc := range toolchains {
			if !tc.IsDir() {
				continue
			}
			candidate := filepath.Join(versionDir, tc.Name())
			if IsInstallation(candidate, goos) {
				found = append(found, candidate)
			}
		}
	}

	slices.Sort(found)
	return found, nil
}

// IsInstallation reports whether dir contains bin/qmake or bin/qtpaths.
func IsInstallation(dir, goos string) bool {
	suffix := paths.ExeSuffix(goos)
	for _, name := range markerBinaries {
		if fileExists(filepath.Join(dir, "bin", name+suffix)) {
			return true
		}
	}
	return false
}

// IsQtPathsOrQMake reports whether p names a qtpaths or qmake binary.
func IsQtPathsOrQMake(p string) bool {
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	if ext == ".exe" {
		base = base[:len(base)-len(ext)]
	}
	for _, name := range markerBinaries {
		if base == name || base == name+"6" {
			return true
		}
	}
	return false
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// dirExists returns true if the path exists and is a directory.
func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
