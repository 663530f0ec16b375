// Package registry reads, reconciles and writes CMake Tools kit registries.
//
// A registry (cmake-tools-kits.json globally, .vscode/cmake-kits.json per
// workspace) is shared with CMake Tools and with users who edit it by hand.
// qtkit owns only the entries it generated in its previous pass, as recorded
// by package state; every other entry is carried through a rewrite
// byte-for-byte in its original position.
//
// Registries are parsed as JWCC (JSON with comments and trailing commas) so
// hand-edited files load; they are written back as plain JSON.
package registry
