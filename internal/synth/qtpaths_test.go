package synth

import (
	"strings"
	"testing"

	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
)

func queryInfo(bin string, query string) *installation.Info {
	info := installation.NewInfo("", bin)
	_ = installation.ParseQuery(strings.NewReader(query), info)
	return info
}

const linuxQuery = `QT_SYSROOT:
QT_INSTALL_PREFIX:/usr
QT_INSTALL_LIBS:/usr/lib/qt6
QT_INSTALL_BINS:/usr/lib/qt6/bin
QT_HOST_PREFIX:/usr
QT_VERSION:6.6.1
QMAKE_XSPEC:linux-g++
QMAKE_SPEC:linux-g++
`

func TestFromInfo_Linux(t *testing.T) {
	b := newBuilder(t, "linux", nil)
	k := onlyKit(t, b.FromInfo(queryInfo("/usr/bin/qtpaths6", linuxQuery), nil))

	if k.Name != "Qt-6.6.1-linux-g++" {
		t.Errorf("Name = %q, want Qt-6.6.1-linux-g++", k.Name)
	}
	if want := "/usr/lib/qt6/cmake/Qt6/qt.toolchain.cmake"; k.ToolchainFile != want {
		t.Errorf("ToolchainFile = %q, want %q", k.ToolchainFile, want)
	}
	if got := k.EnvironmentVariables[kit.EnvQtPathsExe]; got != "/usr/bin/qtpaths6" {
		t.Errorf("%s = %q, want /usr/bin/qtpaths6", kit.EnvQtPathsExe, got)
	}
	if got, want := k.EnvironmentVariables["PATH"], "/usr:/usr/lib/qt6:/usr/lib/qt6/bin:${env:PATH}"; got != want {
		t.Errorf("PATH = %q, want %q", got, want)
	}
	if !kit.IsGenerated(k) {
		t.Error("kit should be marked as generated")
	}
}

func TestFromInfo_NamedPath(t *testing.T) {
	b := newBuilder(t, "linux", nil)
	info := queryInfo("/usr/bin/qtpaths6", linuxQuery)
	info.Name = "system-qt"

	if k := onlyKit(t, b.FromInfo(info, nil)); k.Name != "system-qt" {
		t.Errorf("Name = %q, want system-qt", k.Name)
	}
}

func TestFromInfo_MissingLibs(t *testing.T) {
	b := newBuilder(t, "linux", nil)
	if kits := b.FromInfo(queryInfo("/x/qtpaths", "QT_VERSION:6.6.1\n"), nil); len(kits) != 0 {
		t.Errorf("FromInfo() = %v, want none", kit.Names(kits))
	}
}

func TestFromInfo_MissingToolchainFile(t *testing.T) {
	b := New(Options{
		GOOS:       "linux",
		Locator:    &fakeLocator{},
		Logger:     logging.NewDiscard(),
		FileExists: func(string) bool { return false },
	})
	if kits := b.FromInfo(queryInfo("/usr/bin/qtpaths6", linuxQuery), nil); len(kits) != 0 {
		t.Errorf("FromInfo() without toolchain file = %v, want none", kit.Names(kits))
	}

	// Qt 5 has no toolchain file requirement
	qt5 := strings.Replace(linuxQuery, "QT_VERSION:6.6.1", "QT_VERSION:5.15.2", 1)
	if k := onlyKit(t, b.FromInfo(queryInfo("/usr/bin/qmake", qt5), nil)); k.ToolchainFile != "" {
		t.Errorf("ToolchainFile = %q, want empty", k.ToolchainFile)
	}
}

func TestFromInfo_VCPKG(t *testing.T) {
	const bin = "/vcpkg/installed/x64-linux/tools/Qt6/bin/qtpaths"
	b := New(Options{
		GOOS:               "linux",
		Locator:            &fakeLocator{},
		Logger:             logging.NewDiscard(),
		FileExists:         func(string) bool { return true },
		VCPKGToolchainFile: func() (string, bool) { return "/vcpkg/scripts/buildsystems/vcpkg.cmake", true },
	})
	k := onlyKit(t, b.FromInfo(queryInfo(bin, linuxQuery), nil))
	if want := "/vcpkg/scripts/buildsystems/vcpkg.cmake"; k.ToolchainFile != want {
		t.Errorf("ToolchainFile = %q, want %q", k.ToolchainFile, want)
	}

	noRoot := New(Options{
		GOOS:               "linux",
		Locator:            &fakeLocator{},
		Logger:             logging.NewDiscard(),
		FileExists:         func(string) bool { return true },
		VCPKGToolchainFile: func() (string, bool) { return "", false },
	})
	if kits := noRoot.FromInfo(queryInfo(bin, linuxQuery), nil); len(kits) != 0 {
		t.Errorf("FromInfo() without vcpkg root = %v, want none", kit.Names(kits))
	}
}

const msvcQuery = `QT_INSTALL_PREFIX:C:/Qt/6.5.0/msvc2019_64
QT_INSTALL_LIBS:C:/Qt/6.5.0/msvc2019_64/lib
QT_VERSION:6.5.0
QMAKE_XSPEC:win32-msvc
MSVC_MAJOR_VERSION:19
MSVC_MINOR_VERSION:29
ARCH:x86_64
`

func TestFromInfo_MSVC(t *testing.T) {
	b := newBuilder(t, "windows", nil)
	k := onlyKit(t, b.FromInfo(queryInfo("C:/Qt/6.5.0/msvc2019_64/bin/qtpaths.exe", msvcQuery), []kit.Kit{vsToolset()}))

	if want := "Qt-6.5.0-win32-msvc_VS2019_Release_amd64"; k.Name != want {
		t.Errorf("Name = %q, want %q", k.Name, want)
	}
	if k.Generator.Name != "Ninja" {
		t.Errorf("Generator.Name = %q, want Ninja", k.Generator.Name)
	}
	if got, want := k.EnvironmentVariables[kit.EnvQtPathsExe], "C:/Qt/6.5.0/msvc2019_64/bin/qtpaths.exe"; got != want {
		t.Errorf("%s = %q, want %q", kit.EnvQtPathsExe, got, want)
	}
	if want := "C:/Qt/6.5.0/msvc2019_64/lib/cmake/Qt6/qt.toolchain.cmake"; k.ToolchainFile != want {
		t.Errorf("ToolchainFile = %q, want %q", k.ToolchainFile, want)
	}
}

func TestFromInfo_MSVCUnresolved(t *testing.T) {
	b := newBuilder(t, "windows", nil)
	tests := map[string]string{
		"no version":   strings.Replace(msvcQuery, "MSVC_MAJOR_VERSION:19\n", "", 1),
		"old compiler": strings.Replace(msvcQuery, "MSVC_MAJOR_VERSION:19", "MSVC_MAJOR_VERSION:15", 1),
		"unknown arch": strings.Replace(msvcQuery, "ARCH:x86_64", "ARCH:arm64", 1),
	}
	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			if kits := b.FromInfo(queryInfo("C:/Qt/bin/qtpaths.exe", query), []kit.Kit{vsToolset()}); len(kits) != 0 {
				t.Errorf("FromInfo() = %v, want none", kit.Names(kits))
			}
		})
	}
}

func TestFromQtPaths(t *testing.T) {
	q := fakeQuerier{"/usr/bin/qtpaths6": queryInfo("/usr/bin/qtpaths6", linuxQuery)}
	b := New(Options{
		GOOS:       "linux",
		Locator:    &fakeLocator{},
		Querier:    q,
		Logger:     logging.NewDiscard(),
		FileExists: func(string) bool { return true },
	})

	kits := b.FromQtPaths(t.Context(), []installation.AdditionalPath{
		{Path: "/missing/qtpaths"},
		{Name: "distro", Path: "/usr/bin/qtpaths6"},
	}, nil)
	if k := onlyKit(t, kits); k.Name != "distro" {
		t.Errorf("Name = %q, want distro", k.Name)
	}
}
