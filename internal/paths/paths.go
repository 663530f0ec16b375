package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the directory name qtkit uses below the XDG base directories.
const AppName = "qtkit"

// File and directory names shared with the CMake Tools extension.
const (
	// CMakeToolsDir is the per-user directory the host keeps its kits in.
	CMakeToolsDir = "CMakeTools"

	// GlobalKitsFile is the name of the user-wide kit registry.
	GlobalKitsFile = "cmake-tools-kits.json"

	// WorkspaceConfigDir is the workspace folder's editor config directory.
	WorkspaceConfigDir = ".vscode"

	// WorkspaceKitsFile is the name of the per-workspace kit registry.
	WorkspaceKitsFile = "cmake-kits.json"
)

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories.
const DefaultDirPerm = 0o755

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or an empty string if it cannot
// be determined. Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// DataHome returns the XDG data home directory.
func DataHome() string {
	return xdg.DataHome
}

// StateHome returns the XDG state home directory.
// On Linux: ~/.local/state
func StateHome() string {
	return xdg.StateHome
}

// ConfigDir returns <ConfigHome>/qtkit.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// StateDir returns <StateHome>/qtkit, where generated kit names are tracked.
func StateDir() string {
	return filepath.Join(StateHome(), AppName)
}

// BackupDir returns <DataHome>/qtkit/backups.
func BackupDir() string {
	return filepath.Join(DataHome(), AppName, "backups")
}

// UserLocalDir returns the per-user directory CMake Tools stores state in.
//
//   - windows: %LOCALAPPDATA%
//   - everything else: ~/.local/share (also on macOS, unlike XDG defaults)
func UserLocalDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
		return xdg.DataHome
	}
	home := Home()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}

// GlobalKitsPath returns the user-wide kit registry path:
// <UserLocalDir>/CMakeTools/cmake-tools-kits.json.
func GlobalKitsPath() string {
	dir := UserLocalDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, CMakeToolsDir, GlobalKitsFile)
}

// WorkspaceKitsPath returns <folder>/.vscode/cmake-kits.json.
// Returns an empty string for an empty folder.
func WorkspaceKitsPath(folder string) string {
	if folder == "" {
		return ""
	}
	return filepath.Join(folder, WorkspaceConfigDir, WorkspaceKitsFile)
}

// ExeSuffix returns the executable suffix for goos (".exe" on windows).
func ExeSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
