package synth

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/msvc"
)

// FromQtPaths builds kits for installations registered by their qtpaths
// binary. Paths that cannot be queried are logged and skipped.
func (b *Builder) FromQtPaths(ctx context.Context, additional []installation.AdditionalPath, toolsets []kit.Kit) []kit.Kit {
	var kits []kit.Kit
	for _, ap := range additional {
		if ctx.Err() != nil {
			return kits
		}
		info, err := b.querier.Query(ctx, ap)
		if err != nil {
			b.logger.Warn("cannot query Qt installation, skipping", "path", ap.Path, "error", err)
			continue
		}
		kits = append(kits, b.FromInfo(info, toolsets)...)
	}
	return kits
}

// FromInfo builds the kits for one queried installation.
func (b *Builder) FromInfo(info *installation.Info, toolsets []kit.Kit) []kit.Kit {
	log := b.logger.With("qtpaths", info.QtPathsBin)

	k := b.CommonKit()
	k.Name = info.Name
	if k.Name == "" {
		k.Name = info.DefaultName()
	}

	libs := info.Get("QT_INSTALL_LIBS")
	if libs == "" {
		log.Warn("qtpaths reported no QT_INSTALL_LIBS, skipping")
		return nil
	}

	if strings.HasPrefix(info.Get("QT_VERSION"), "6") {
		tc, ok := filepath.Join(libs, "cmake", "Qt6", "qt.toolchain.cmake"), true
		if info.IsVCPKG {
			tc, ok = b.vcpkg()
		}
		if !ok || !b.exists(tc) {
			log.Error("toolchain file not found, skipping", "toolchain_file", tc)
			return nil
		}
		k.ToolchainFile = tc
	}

	k.SetEnv(kit.EnvQtPathsExe, info.QtPathsBin)
	k.SetEnv("PATH", b.qtPathsEnvPath(info))

	if !strings.Contains(info.Get("QMAKE_XSPEC"), "-msvc") {
		return []kit.Kit{k}
	}

	major, majorErr := strconv.Atoi(info.Get("MSVC_MAJOR_VERSION"))
	minor, minorErr := strconv.Atoi(info.Get("MSVC_MINOR_VERSION"))
	if majorErr != nil || minorErr != nil || major < 0 || minor < 0 {
		log.Warn("cannot read MSVC version, skipping",
			"major", info.Get("MSVC_MAJOR_VERSION"), "minor", info.Get("MSVC_MINOR_VERSION"))
		return nil
	}
	year := msvc.YearFromMSCVer(major*100 + minor)
	if year == "" {
		log.Warn("unknown MSVC version, skipping", "mscver", major*100+minor)
		return nil
	}
	arch := msvc.Arch(info.Get("ARCH"))
	if arch == "" {
		log.Warn("unknown MSVC architecture, skipping", "arch", info.Get("ARCH"))
		return nil
	}
	return b.matcher.Match(k, toolsets, arch, year)
}

// qtPathsEnvPath collects the installation directories reported by qtpaths
// in output order, followed by the ambient PATH.
func (b *Builder) qtPathsEnvPath(info *installation.Info) string {
	seen := make(map[string]bool)
	var dirs []string
	for _, key := range info.Keys() {
		value := info.Get(key)
		if !strings.HasPrefix(key, "QT_") || key == "QT_VERSION" || value == "" || seen[value] {
			continue
		}
		seen[value] = true
		dirs = append(dirs, value)
	}
	dirs = append(dirs, kit.EnvPathReference)
	return b.joinPathList(dirs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
