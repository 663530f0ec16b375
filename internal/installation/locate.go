package installation

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/thoreinstein/qtkit/internal/paths"
)

// ToolchainFileRel is the Qt 6 CMake toolchain file relative to an
// installation.
var ToolchainFileRel = filepath.Join("lib", "cmake", "Qt6", "qt.toolchain.cmake")

// FSLocator resolves auxiliary files on the local filesystem.
type FSLocator struct {
	// GOOS selects executable suffixes. Empty means the running host.
	GOOS string

	// LookPath finds executables on PATH. Nil means exec.LookPath.
	LookPath func(string) (string, error)
}

// NewFSLocator returns a locator for the running host.
func NewFSLocator() *FSLocator {
	return &FSLocator{GOOS: runtime.GOOS, LookPath: exec.LookPath}
}

func (l *FSLocator) goos() string {
	return hostGOOS(l.GOOS)
}

func hostGOOS(goos string) string {
	if goos == "" {
		return runtime.GOOS
	}
	return goos
}

func (l *FSLocator) exe(name string) string {
	return name + paths.ExeSuffix(l.goos())
}

// ToolchainFile returns the Qt 6 toolchain file of an installation.
func (l *FSLocator) ToolchainFile(installation string) (string, bool) {
	p := filepath.Join(installation, ToolchainFileRel)
	return p, fileExists(p)
}

// MinGWBinDir returns the bin directory of the newest MinGW shipped under
// <root>/Tools.
func (l *FSLocator) MinGWBinDir(root string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(root, "Tools", "mingw*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	slices.SortFunc(matches, func(a, b string) int {
		return -compareNatural(filepath.Base(a), filepath.Base(b))
	})
	for _, m := range matches {
		bin := filepath.Join(m, "bin")
		if dirExists(bin) {
			return bin, true
		}
	}
	return "", false
}

// Ninja returns the Ninja executable shipped under <root>/Tools/Ninja.
func (l *FSLocator) Ninja(root string) (string, bool) {
	p := filepath.Join(root, "Tools", "Ninja", l.exe("ninja"))
	return p, fileExists(p)
}

// CMake returns the CMake executable shipped under <root>/Tools/CMake*.
// Both the plain layout and the macOS app bundle layout are searched.
func (l *FSLocator) CMake(root string) (string, bool) {
	dirs, err := filepath.Glob(filepath.Join(root, "Tools", "CMake*"))
	if err != nil {
		return "", false
	}
	slices.Sort(dirs)
	for _, d := range dirs {
		for _, p := range []string{
			filepath.Join(d, "bin", l.exe("cmake")),
			filepath.Join(d, "CMake.app", "Contents", "bin", "cmake"),
		} {
			if fileExists(p) {
				return p, true
			}
		}
	}
	return "", false
}

// OnPath reports whether tool is reachable from PATH.
func (l *FSLocator) OnPath(tool string) bool {
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(tool)
	return err == nil
}

// VCPKGToolchainFile returns vcpkg's CMake toolchain file when VCPKG_ROOT
// is set.
func VCPKGToolchainFile() (string, bool) {
	root := os.Getenv("VCPKG_ROOT")
	if root == "" {
		return "", false
	}
	return filepath.Join(root, "scripts", "buildsystems", "vcpkg.cmake"), true
}

// compareNatural orders names so that digit runs compare numerically:
// mingw810_64 < mingw1120_64.
func compareNatural(a, b string) int {
	for a != "" && b != "" {
		ad, arest := splitDigits(a)
		bd, brest := splitDigits(b)
		if ad != "" && bd != "" {
			ad, bd = strings.TrimLeft(ad, "0"), strings.TrimLeft(bd, "0")
			if len(ad) != len(bd) {
				return len(ad) - len(bd)
			}
			if c := strings.Compare(ad, bd); c != 0 {
				return c
			}
			a, b = arest, brest
			continue
		}
		if a[0] != b[0] {
			return int(a[0]) - int(b[0])
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
