// Package msvc expands a Qt MSVC installation into one kit per compatible
// Visual Studio toolset kit already known to CMake Tools.
package msvc

import (
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/thoreinstein/qtkit/internal/kit"
)

var (
	// installationArchRe matches msvcYEAR_ARCH directory names.
	installationArchRe = regexp.MustCompile(`msvc(\d\d\d\d)_(.+)`)
	// installationRe matches msvcYEAR directory names.
	installationRe = regexp.MustCompile(`msvc(\d\d\d\d)`)

	yearRe         = regexp.MustCompile(` (\d\d\d\d) `)
	majorVersionRe = regexp.MustCompile(`VisualStudio\.(\d\d)\.\d `)

	suffixSeparatorRe = regexp.MustCompile(`[-_ ]+`)
	nameSeparatorRe   = regexp.MustCompile(`[/\\:]+`)
)

// DefaultArch is assumed for msvcYEAR directories without an architecture.
const DefaultArch = "32"

var platformToArch = map[string]string{
	"x64":       "64",
	"amd64_x86": "32",
	"x86_amd64": "64",
	"amd64":     "64",
	"win32":     "32",
	"x86":       "32",
	"x86_64":    "64",
	"i386":      "32",
}

var majorVersionToYear = map[string]string{
	"11": "2008",
	"12": "2010",
	"13": "2012",
	"14": "2015",
	"15": "2017",
	"16": "2019",
	"17": "2022",
}

// Arch maps an MSVC platform name (x64, amd64_x86, win32, ...) to the Qt
// architecture suffix ("64" or "32"). It returns "" for unknown platforms.
func Arch(platform string) string {
	return platformToArch[platform]
}

// Year extracts the Visual Studio release year from a toolset kit name.
// A standalone four digit year wins; otherwise a "VisualStudio.NN.N " marker
// is translated through the major version table. It returns "" when neither
// is present.
func Year(name string) string {
	if m := yearRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := majorVersionRe.FindStringSubmatch(name); m != nil {
		return majorVersionToYear[m[1]]
	}
	return ""
}

// ParseInstallation extracts the year and architecture from an MSVC Qt
// installation directory name such as "msvc2019_64". Directories without an
// architecture ("msvc2019") default to DefaultArch. ok is false when the name
// carries no msvcYEAR token.
func ParseInstallation(dirName string) (year, arch string, ok bool) {
	if m := installationArchRe.FindStringSubmatch(dirName); m != nil {
		return m[1], m[2], true
	}
	if m := installationRe.FindStringSubmatch(dirName); m != nil {
		return m[1], DefaultArch, true
	}
	return "", "", false
}

// YearFromMSCVer converts a _MSC_VER value (major*100+minor) to the Visual
// Studio release year. It returns "" for unknown compiler versions.
func YearFromMSCVer(mscver int) string {
	switch {
	case mscver == 1600:
		return "2010"
	case mscver == 1700:
		return "2012"
	case mscver == 1800:
		return "2013"
	case mscver == 1900:
		return "2015"
	case mscver >= 1910 && mscver <= 1916:
		return "2017"
	case mscver >= 1920 && mscver <= 1929:
		return "2019"
	case mscver >= 1930 && mscver <= 1939:
		return "2022"
	}
	return ""
}

// Matcher selects and rewrites toolset kits for an MSVC installation.
type Matcher struct {
	// Generator is forced onto every produced kit.
	Generator string
	Logger    *slog.Logger
}

// NewMatcher returns a Matcher for the given generator. An empty generator
// selects kit.DefaultGenerator.
func NewMatcher(generator string, logger *slog.Logger) *Matcher {
	if generator == "" {
		generator = kit.DefaultGenerator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{Generator: generator, Logger: logger}
}

// Compatible reports whether candidate targets arch and was released in or
// after minYear. Both visualStudioArchitecture and the generator platform
// must map to arch, which rules out cross-compiling toolsets.
func Compatible(candidate kit.Kit, arch, minYear string) bool {
	year := Year(candidate.Name)
	if year == "" || candidate.Generator == nil {
		return false
	}
	if Arch(candidate.VisualStudioArchitecture) != arch || Arch(candidate.Generator.Platform) != arch {
		return false
	}

	return compareYears(year, minYear) >= 0
}

// Match returns one kit per compatible candidate, derived from base. Each
// result is an independent deep copy named "<base>_<toolset suffix>", with
// the matcher's generator, and base's environment and toolchain file.
// Candidates are not modified. Missing year or arch yields nil.
func (m *Matcher) Match(base kit.Kit, candidates []kit.Kit, arch, minYear string) []kit.Kit {
	log := m.Logger.With("kit", base.Name, "arch", arch, "min_year", minYear)
	if arch == "" || minYear == "" {
		log.Warn("cannot resolve MSVC year or architecture, skipping")
		return nil
	}

	base = base.Clone()
	if base.Generator == nil {
		base.Generator = &kit.Generator{}
	}
	base.Generator.Name = m.Generator

	var out []kit.Kit
	for _, candidate := range candidates {
		if !Compatible(candidate, arch, minYear) {
			continue
		}
		out = append(out, m.derive(base, candidate))
	}

	log.Debug("matched MSVC toolsets", "candidates", len(candidates), "matches", len(out))
	return out
}

// derive builds the kit for one compatible candidate. Compatible rejects
// candidates without a generator, so k.Generator is never nil here.
func (m *Matcher) derive(base, candidate kit.Kit) kit.Kit {
	k := candidate.Clone()
	k.Name = MangleName(base.Name + "_" + ToolsetSuffix(candidate.Name))
	k.Generator.Name = base.Generator.Name

	if k.Generator.IsNinja() {
		if base.CMakeSettings != nil {
			settings := maps.Clone(base.CMakeSettings)
			maps.Copy(settings, k.CMakeSettings)
			k.CMakeSettings = settings
		}
		k.Generator.Platform = ""
		k.Generator.Toolset = ""
	}

	k.EnvironmentVariables = maps.Clone(base.EnvironmentVariables)
	k.ToolchainFile = base.ToolchainFile
	return k
}

// ToolsetSuffix normalizes a toolset kit name for use in a kit name:
// "Visual Studio 2019 Release - amd64" becomes "VS2019_Release_amd64".
func ToolsetSuffix(name string) string {
	name = strings.Replace(name, "Visual Studio ", "VS", 1)
	return suffixSeparatorRe.ReplaceAllString(name, "_")
}

// MangleName strips path-like noise from a derived kit name: segments
// separated by slashes or colons are joined with "-", starting at a "Qt"
// segment when one exists.
func MangleName(name string) string {
	var parts []string
	for _, p := range nameSeparatorRe.Split(name, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	start := 0
	for i, p := range parts {
		if strings.EqualFold(p, "qt") {
			start = i
			break
		}
	}
	return strings.Join(parts[start:], "-")
}

func compareYears(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr != nil || berr != nil {
		return strings.Compare(a, b)
	}
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return 0
}
