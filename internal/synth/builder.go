package synth

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
	"github.com/thoreinstein/qtkit/internal/msvc"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/internal/toolchain"
)

// qmlDebugFlags enable QML debugging in debug builds.
const qmlDebugFlags = "-DQT_QML_DEBUG -DQT_DECLARATIVE_DEBUG"

// Generators and settings used by the iOS branch.
const (
	xcodeGenerator  = "Xcode"
	simulatorSuffix = "-simulator"
)

// Locator resolves auxiliary files for an installation.
type Locator interface {
	ToolchainFile(installation string) (string, bool)
	MinGWBinDir(root string) (string, bool)
	Ninja(root string) (string, bool)
	OnPath(tool string) bool
}

// Querier describes an installation registered by its qtpaths binary.
type Querier interface {
	Query(ctx context.Context, ap installation.AdditionalPath) (*installation.Info, error)
}

// Options configure a Builder.
type Options struct {
	// Generator is the CMake generator for produced kits. Empty means
	// kit.DefaultGenerator.
	Generator string

	// GOOS is the host the kits are for. Empty means the running host.
	GOOS string

	Locator Locator
	Querier Querier
	Logger  *slog.Logger

	// VCPKGToolchainFile resolves vcpkg's toolchain file. Nil means
	// installation.VCPKGToolchainFile.
	VCPKGToolchainFile func() (string, bool)

	// FileExists reports whether a toolchain file exists. Nil means os.Stat.
	FileExists func(string) bool
}

// Builder synthesizes kits. It is safe for concurrent use; it holds no
// mutable state.
type Builder struct {
	generator string
	goos      string
	locator   Locator
	querier   Querier
	logger    *slog.Logger
	matcher   *msvc.Matcher
	vcpkg     func() (string, bool)
	exists    func(string) bool
}

// New returns a Builder. Missing collaborators default to the filesystem
// implementations in package installation.
func New(opts Options) *Builder {
	b := &Builder{
		generator: opts.Generator,
		goos:      opts.GOOS,
		locator:   opts.Locator,
		querier:   opts.Querier,
		logger:    opts.Logger,
		vcpkg:     opts.VCPKGToolchainFile,
		exists:    opts.FileExists,
	}
	if b.generator == "" {
		b.generator = kit.DefaultGenerator
	}
	if b.goos == "" {
		b.goos = runtime.GOOS
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = logging.Component(b.logger, "synth")
	if b.locator == nil {
		b.locator = &installation.FSLocator{GOOS: b.goos}
	}
	if b.querier == nil {
		b.querier = &installation.QtPathsQuerier{GOOS: b.goos}
	}
	if b.vcpkg == nil {
		b.vcpkg = installation.VCPKGToolchainFile
	}
	if b.exists == nil {
		b.exists = fileExists
	}
	b.matcher = msvc.NewMatcher(b.generator, b.logger)
	return b
}

// Generator returns the generator applied to produced kits.
func (b *Builder) Generator() string {
	return b.generator
}

// CommonKit returns the template every produced kit starts from.
func (b *Builder) CommonKit() kit.Kit {
	return kit.Kit{
		IsTrusted: true,
		Generator: &kit.Generator{Name: b.generator},
		CMakeSettings: map[string]string{
			"QT_QML_GENERATE_QMLLS_INI":           "ON",
			"CMAKE_CXX_FLAGS_DEBUG_INIT":          qmlDebugFlags,
			"CMAKE_CXX_FLAGS_RELWITHDEBINFO_INIT": qmlDebugFlags,
		},
	}
}

func (b *Builder) windows() bool {
	return b.goos == "windows"
}

func (b *Builder) pathListSeparator() string {
	if b.windows() {
		return ";"
	}
	return ":"
}

// joinPath joins file path elements with the separator of the target host,
// so kits for Windows use backslashes wherever qtkit runs.
func (b *Builder) joinPath(elem ...string) string {
	if !b.windows() {
		return path.Join(elem...)
	}
	slashed := make([]string, len(elem))
	for i, e := range elem {
		slashed[i] = strings.ReplaceAll(e, `\`, "/")
	}
	return strings.ReplaceAll(path.Join(slashed...), "/", `\`)
}

// joinPathList joins non-empty elements with the host's list separator.
func (b *Builder) joinPathList(elems ...string) string {
	kept := make([]string, 0, len(elems))
	for _, e := range elems {
		if e != "" {
			kept = append(kept, e)
		}
	}
	return strings.Join(kept, b.pathListSeparator())
}

// FromInstallations builds kits for every installation under root. A failure
// for one installation never affects the others.
func (b *Builder) FromInstallations(ctx context.Context, root string, installations []string, toolsets []kit.Kit) []kit.Kit {
	var kits []kit.Kit
	for _, ins := range installations {
		if ctx.Err() != nil {
			return kits
		}
		kits = append(kits, b.FromInstallation(ctx, root, ins, toolsets)...)
	}
	return kits
}

// FromInstallation builds the kits for one installation under root.
// toolsets are the CMake Tools kits MSVC installations are matched against.
func (b *Builder) FromInstallation(_ context.Context, root, ins string, toolsets []kit.Kit) []kit.Kit {
	log := b.logger.With("installation", ins)

	pathEnv := ""
	if b.windows() {
		pathEnv = b.joinPathList(b.joinPath(ins, "bin"), kit.EnvPathReference)
	}
	if !b.locator.OnPath("ninja") {
		if ninja, ok := b.locator.Ninja(root); ok {
			pathEnv = b.joinPathList(pathEnv, filepath.Dir(ninja))
		}
	}

	k := b.CommonKit()
	k.Name = MangleInstallation(root, ins)
	k.SetEnv(kit.EnvInstallation, ins)
	if pathEnv != "" {
		k.SetEnv("PATH", pathEnv)
	}
	if tc, ok := b.locator.ToolchainFile(ins); ok {
		k.ToolchainFile = tc
	}

	dir := toolchain.LastSegment(ins)
	tag := toolchain.Classify(ins)
	log.Debug("classified installation", "tag", tag)

	switch tag {
	case toolchain.MSVC:
		year, arch, ok := msvc.ParseInstallation(dir)
		if !ok {
			log.Warn("cannot parse MSVC installation name, skipping")
			return nil
		}
		return b.matcher.Match(k, toolsets, arch, year)

	case toolchain.MinGW:
		if bin, ok := b.locator.MinGWBinDir(root); ok {
			k.SetEnv("PATH", b.joinPathList(k.EnvironmentVariables["PATH"], bin))
			suffix := paths.ExeSuffix(b.goos)
			k.Compilers = map[string]string{
				"C":   b.joinPath(bin, "gcc"+suffix),
				"CXX": b.joinPath(bin, "g++"+suffix),
			}
		} else {
			log.Info("no MinGW found under Tools, leaving compilers unset")
		}

	case toolchain.MacOS:
		k.Compilers = map[string]string{
			"C":   "/usr/bin/clang",
			"CXX": "/usr/bin/clang++",
		}

	case toolchain.IOS:
		k.Generator = &kit.Generator{Name: xcodeGenerator}
		sim := k.Clone()
		sim.Name = k.Name + simulatorSuffix
		sim.CMakeSettings["CMAKE_OSX_ARCHITECTURES"] = "x86_64"
		sim.CMakeSettings["CMAKE_OSX_SYSROOT"] = "iphonesimulator"
		return []kit.Kit{k, sim}

	case toolchain.Android, toolchain.Other:
	}

	return []kit.Kit{k}
}

// MangleInstallation names a kit after the installation path relative to
// root, prefixed with root's base name: /opt/Qt + /opt/Qt/6.5.0/macos gives
// "Qt-6.5.0-macos". Slashes and backslashes are both accepted. An
// installation outside root is named after its last segment.
func MangleInstallation(root, ins string) string {
	r := strings.TrimRight(strings.ReplaceAll(root, `\`, "/"), "/")
	i := strings.ReplaceAll(ins, `\`, "/")
	rel, ok := strings.CutPrefix(i, r+"/")
	if r == "" || !ok {
		return toolchain.LastSegment(ins)
	}

	parts := []string{toolchain.LastSegment(r)}
	for _, p := range strings.Split(rel, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}
