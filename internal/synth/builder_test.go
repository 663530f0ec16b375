package synth

import (
	"context"
	"maps"
	"reflect"
	"slices"
	"testing"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/installation"
	"github.com/thoreinstein/qtkit/internal/kit"
	"github.com/thoreinstein/qtkit/internal/logging"
)

type fakeLocator struct {
	toolchains map[string]string
	mingw      string
	ninja      string
	onPath     map[string]bool
}

func (f *fakeLocator) ToolchainFile(ins string) (string, bool) {
	tc, ok := f.toolchains[ins]
	return tc, ok
}

func (f *fakeLocator) MinGWBinDir(string) (string, bool) {
	return f.mingw, f.mingw != ""
}

func (f *fakeLocator) Ninja(string) (string, bool) {
	return f.ninja, f.ninja != ""
}

func (f *fakeLocator) OnPath(tool string) bool {
	return f.onPath[tool]
}

type fakeQuerier map[string]*installation.Info

func (f fakeQuerier) Query(_ context.Context, ap installation.AdditionalPath) (*installation.Info, error) {
	info, ok := f[ap.Path]
	if !ok {
		return nil, errors.ErrNotFound
	}
	info.Name = ap.Name
	return info, nil
}

func newBuilder(t *testing.T, goos string, loc *fakeLocator) *Builder {
	t.Helper()
	if loc == nil {
		loc = &fakeLocator{onPath: map[string]bool{"ninja": true}}
	}
	return New(Options{
		GOOS:       goos,
		Locator:    loc,
		Querier:    fakeQuerier{},
		Logger:     logging.NewDiscard(),
		FileExists: func(string) bool { return true },
	})
}

func vsToolset() kit.Kit {
	return kit.Kit{
		Name:                     "Visual Studio 2019 Release - amd64",
		VisualStudio:             "VisualStudio.16.0",
		VisualStudioArchitecture: "x64",
		Generator: &kit.Generator{
			Name:     "Visual Studio 16 2019",
			Platform: "x64",
			Toolset:  "host=x64",
		},
		IsTrusted: true,
	}
}

// onlyKit fails the test unless kits holds exactly one kit.
func onlyKit(t *testing.T, kits []kit.Kit) kit.Kit {
	t.Helper()
	if len(kits) != 1 {
		t.Fatalf("got %d kits %v, want 1", len(kits), kit.Names(kits))
	}
	return kits[0]
}

func TestCommonKit(t *testing.T) {
	b := newBuilder(t, "linux", nil)
	k := b.CommonKit()

	if !k.IsTrusted {
		t.Error("common kit should be trusted")
	}
	if k.Generator.Name != "Ninja" {
		t.Errorf("Generator.Name = %q, want Ninja", k.Generator.Name)
	}
	want := map[string]string{
		"QT_QML_GENERATE_QMLLS_INI":           "ON",
		"CMAKE_CXX_FLAGS_DEBUG_INIT":          "-DQT_QML_DEBUG -DQT_DECLARATIVE_DEBUG",
		"CMAKE_CXX_FLAGS_RELWITHDEBINFO_INIT": "-DQT_QML_DEBUG -DQT_DECLARATIVE_DEBUG",
	}
	if !maps.Equal(k.CMakeSettings, want) {
		t.Errorf("CMakeSettings = %v, want %v", k.CMakeSettings, want)
	}

	// every call returns an independent template
	k.CMakeSettings["X"] = "1"
	if _, ok := b.CommonKit().CMakeSettings["X"]; ok {
		t.Error("CommonKit() shares its settings map between calls")
	}
}

func TestCommonKit_ConfiguredGenerator(t *testing.T) {
	b := New(Options{Generator: "Ninja Multi-Config", Logger: logging.NewDiscard()})
	if got := b.CommonKit().Generator.Name; got != "Ninja Multi-Config" {
		t.Errorf("CommonKit().Generator.Name = %q, want Ninja Multi-Config", got)
	}
	if got := b.Generator(); got != "Ninja Multi-Config" {
		t.Errorf("Generator() = %q, want Ninja Multi-Config", got)
	}
}

func TestMangleInstallation(t *testing.T) {
	tests := []struct {
		root, ins, want string
	}{
		{"/opt/Qt", "/opt/Qt/6.5.0/macos", "Qt-6.5.0-macos"},
		{"/opt/Qt/", "/opt/Qt/6.5.0/gcc_64", "Qt-6.5.0-gcc_64"},
		{`C:\Qt`, `C:\Qt\6.5.0\msvc2019_64`, "Qt-6.5.0-msvc2019_64"},
		{"/home/u/dev/Qt", "/home/u/dev/Qt/6.6/ios", "Qt-6.6-ios"},
		{"/opt/Qt", "/elsewhere/6.5.0/macos", "macos"},
		{"", "/opt/Qt/6.5.0/macos", "macos"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := MangleInstallation(tt.root, tt.ins); got != tt.want {
				t.Errorf("MangleInstallation(%q, %q) = %q, want %q", tt.root, tt.ins, got, tt.want)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		goos string
		elem []string
		want string
	}{
		{"windows", []string{`C:\Qt\6.5.0\msvc2019_64`, "bin"}, `C:\Qt\6.5.0\msvc2019_64\bin`},
		{"windows", []string{"C:/Qt/Tools/mingw1120_64/bin", "gcc.exe"}, `C:\Qt\Tools\mingw1120_64\bin\gcc.exe`},
		{"windows", []string{`C:\Qt\`, `6.5.0\`, "bin"}, `C:\Qt\6.5.0\bin`},
		{"linux", []string{"/opt/Qt/6.5.0/gcc_64", "bin"}, "/opt/Qt/6.5.0/gcc_64/bin"},
		{"darwin", []string{"/opt/Qt/Tools/", "ninja"}, "/opt/Qt/Tools/ninja"},
	}
	for _, tt := range tests {
		b := newBuilder(t, tt.goos, nil)
		if got := b.joinPath(tt.elem...); got != tt.want {
			t.Errorf("joinPath(%q) on %s = %q, want %q", tt.elem, tt.goos, got, tt.want)
		}
	}
}

func TestFromInstallation_MSVC(t *testing.T) {
	b := newBuilder(t, "windows", nil)
	ins := `C:\Qt\6.5.0\msvc2019_64`

	k := onlyKit(t, b.FromInstallation(t.Context(), `C:\Qt`, ins, []kit.Kit{vsToolset()}))

	if want := "Qt-6.5.0-msvc2019_64_VS2019_Release_amd64"; k.Name != want {
		t.Errorf("Name = %q, want %q", k.Name, want)
	}
	if g := k.Generator; g.Name != "Ninja" || g.Platform != "" || g.Toolset != "" {
		t.Errorf("Generator = %+v, want plain Ninja", *g)
	}
	if got := k.CMakeSettings["QT_QML_GENERATE_QMLLS_INI"]; got != "ON" {
		t.Errorf("QT_QML_GENERATE_QMLLS_INI = %q, want ON", got)
	}
	if got := k.EnvironmentVariables[kit.EnvInstallation]; got != ins {
		t.Errorf("%s = %q, want %q", kit.EnvInstallation, got, ins)
	}
	if got, want := k.EnvironmentVariables["PATH"], `C:\Qt\6.5.0\msvc2019_64\bin;${env:PATH}`; got != want {
		t.Errorf("PATH = %q, want %q", got, want)
	}
	if !k.IsTrusted {
		t.Error("kit should be trusted")
	}
}

func TestFromInstallation_MSVCNoMatch(t *testing.T) {
	b := newBuilder(t, "windows", nil)
	if kits := b.FromInstallation(t.Context(), `C:\Qt`, `C:\Qt\6.5.0\msvc2022_arm64`, []kit.Kit{vsToolset()}); len(kits) != 0 {
		t.Errorf("FromInstallation() = %v, want none", kit.Names(kits))
	}
}

func TestFromInstallation_MacOS(t *testing.T) {
	b := newBuilder(t, "darwin", nil)
	k := onlyKit(t, b.FromInstallation(t.Context(), "/opt/Qt", "/opt/Qt/6.5.0/macos", nil))

	if k.Name != "Qt-6.5.0-macos" {
		t.Errorf("Name = %q, want Qt-6.5.0-macos", k.Name)
	}
	want := map[string]string{"C": "/usr/bin/clang", "CXX": "/usr/bin/clang++"}
	if !maps.Equal(k.Compilers, want) {
		t.Errorf("Compilers = %v, want %v", k.Compilers, want)
	}
	if k.ToolchainFile != "" {
		t.Errorf("ToolchainFile = %q, want empty", k.ToolchainFile)
	}
	if p, ok := k.EnvironmentVariables["PATH"]; ok {
		t.Errorf("PATH = %q, want unset", p)
	}
	if !kit.IsGenerated(k) {
		t.Error("kit should be marked as generated")
	}
}

func TestFromInstallation_IOS(t *testing.T) {
	tc := "/opt/Qt/6.5.0/ios/lib/cmake/Qt6/qt.toolchain.cmake"
	loc := &fakeLocator{
		toolchains: map[string]string{"/opt/Qt/6.5.0/ios": tc},
		onPath:     map[string]bool{"ninja": true},
	}
	b := newBuilder(t, "darwin", loc)

	kits := b.FromInstallation(t.Context(), "/opt/Qt", "/opt/Qt/6.5.0/ios", nil)
	if got, want := kit.Names(kits), []string{"Qt-6.5.0-ios", "Qt-6.5.0-ios-simulator"}; !slices.Equal(got, want) {
		t.Fatalf("FromInstallation() = %v, want %v", got, want)
	}

	device, sim := kits[0], kits[1]
	for _, k := range kits {
		if k.Generator.Name != "Xcode" {
			t.Errorf("%s: Generator.Name = %q, want Xcode", k.Name, k.Generator.Name)
		}
		if k.ToolchainFile != tc {
			t.Errorf("%s: ToolchainFile = %q, want %q", k.Name, k.ToolchainFile, tc)
		}
	}
	if got := sim.CMakeSettings["CMAKE_OSX_SYSROOT"]; got != "iphonesimulator" {
		t.Errorf("simulator CMAKE_OSX_SYSROOT = %q, want iphonesimulator", got)
	}
	if got := sim.CMakeSettings["CMAKE_OSX_ARCHITECTURES"]; got != "x86_64" {
		t.Errorf("simulator CMAKE_OSX_ARCHITECTURES = %q, want x86_64", got)
	}
	if got := sim.CMakeSettings["QT_QML_GENERATE_QMLLS_INI"]; got != "ON" {
		t.Errorf("simulator QT_QML_GENERATE_QMLLS_INI = %q, want ON", got)
	}
	if _, ok := device.CMakeSettings["CMAKE_OSX_SYSROOT"]; ok {
		t.Error("device kit should not set CMAKE_OSX_SYSROOT")
	}

	sim.Generator.Name = "changed"
	if device.Generator.Name != "Xcode" {
		t.Error("simulator kit shares its generator with the device kit")
	}
}

func TestFromInstallation_MinGW(t *testing.T) {
	loc := &fakeLocator{mingw: `C:\Qt\Tools\mingw1120_64\bin`}
	b := newBuilder(t, "windows", loc)

	k := onlyKit(t, b.FromInstallation(t.Context(), `C:\Qt`, `C:\Qt\6.5.0\mingw_64`, nil))

	if k.Name != "Qt-6.5.0-mingw_64" {
		t.Errorf("Name = %q, want Qt-6.5.0-mingw_64", k.Name)
	}
	want := map[string]string{
		"C":   `C:\Qt\Tools\mingw1120_64\bin\gcc.exe`,
		"CXX": `C:\Qt\Tools\mingw1120_64\bin\g++.exe`,
	}
	if !maps.Equal(k.Compilers, want) {
		t.Errorf("Compilers = %v, want %v", k.Compilers, want)
	}
	wantPath := `C:\Qt\6.5.0\mingw_64\bin;${env:PATH};C:\Qt\Tools\mingw1120_64\bin`
	if got := k.EnvironmentVariables["PATH"]; got != wantPath {
		t.Errorf("PATH = %q, want %q", got, wantPath)
	}
}

func TestFromInstallation_MinGWWithoutTools(t *testing.T) {
	b := newBuilder(t, "windows", &fakeLocator{})
	k := onlyKit(t, b.FromInstallation(t.Context(), `C:\Qt`, `C:\Qt\6.5.0\mingw_64`, nil))
	if k.Compilers != nil {
		t.Errorf("Compilers = %v, want nil", k.Compilers)
	}
}

func TestFromInstallation_NinjaFromTools(t *testing.T) {
	loc := &fakeLocator{ninja: "/opt/Qt/Tools/Ninja/ninja"}
	b := newBuilder(t, "linux", loc)

	k := onlyKit(t, b.FromInstallation(t.Context(), "/opt/Qt", "/opt/Qt/6.5.0/gcc_64", nil))
	if got := k.EnvironmentVariables["PATH"]; got != "/opt/Qt/Tools/Ninja" {
		t.Errorf("PATH = %q, want /opt/Qt/Tools/Ninja", got)
	}

	loc.onPath = map[string]bool{"ninja": true}
	k = onlyKit(t, b.FromInstallation(t.Context(), "/opt/Qt", "/opt/Qt/6.5.0/gcc_64", nil))
	if p, ok := k.EnvironmentVariables["PATH"]; ok {
		t.Errorf("PATH = %q, want unset when ninja is on PATH", p)
	}
}

func TestFromInstallation_AndroidAndOther(t *testing.T) {
	b := newBuilder(t, "linux", nil)
	for _, ins := range []string{"/opt/Qt/6.5.0/android_arm64_v8a", "/opt/Qt/6.5.0/gcc_64", "/opt/Qt/6.5.0/wasm_singlethread"} {
		t.Run(ins, func(t *testing.T) {
			k := onlyKit(t, b.FromInstallation(t.Context(), "/opt/Qt", ins, nil))
			if k.Compilers != nil {
				t.Errorf("Compilers = %v, want nil", k.Compilers)
			}
			if k.Generator.Name != "Ninja" {
				t.Errorf("Generator.Name = %q, want Ninja", k.Generator.Name)
			}
		})
	}
}

func TestFromInstallations_Deterministic(t *testing.T) {
	b := newBuilder(t, "darwin", nil)
	ins := []string{"/opt/Qt/6.5.0/macos", "/opt/Qt/6.5.0/ios", "/opt/Qt/6.5.0/android_x86"}

	first := b.FromInstallations(t.Context(), "/opt/Qt", ins, nil)
	second := b.FromInstallations(t.Context(), "/opt/Qt", ins, nil)

	want := []string{"Qt-6.5.0-macos", "Qt-6.5.0-ios", "Qt-6.5.0-ios-simulator", "Qt-6.5.0-android_x86"}
	if got := kit.Names(first); !slices.Equal(got, want) {
		t.Errorf("FromInstallations() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("FromInstallations() is not deterministic")
	}
}

func TestFromInstallations_Cancelled(t *testing.T) {
	b := newBuilder(t, "darwin", nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if kits := b.FromInstallations(ctx, "/opt/Qt", []string{"/opt/Qt/6.5.0/macos"}, nil); len(kits) != 0 {
		t.Errorf("FromInstallations() after cancel = %v, want none", kit.Names(kits))
	}
}
