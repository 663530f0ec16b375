// Package paths provides cross-platform path resolution for qtkit and for
// the kit registries it shares with the CMake Tools extension.
//
// # XDG Base Directory Compliance
//
// qtkit's own files follow github.com/adrg/xdg:
//
//	paths.ConfigDir() // ~/.config/qtkit (config.yaml)
//	paths.StateDir()  // ~/.local/state/qtkit (generated kit names)
//	paths.BackupDir() // ~/.local/share/qtkit/backups
//
// # Kit Registries
//
// The registries are owned by the host tool and live where it expects them:
//
//	| Scope     | Path                                              |
//	|-----------|---------------------------------------------------|
//	| global    | <UserLocalDir>/CMakeTools/cmake-tools-kits.json   |
//	| workspace | <folder>/.vscode/cmake-kits.json                  |
//
// UserLocalDir is %LOCALAPPDATA% on Windows and ~/.local/share elsewhere.
package paths
