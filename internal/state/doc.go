// Package state remembers which kit names qtkit generated last time, per
// scope and per kit source.
//
// The registry reconciler removes exactly those names from a registry before
// appending freshly generated kits, so the store is the only thing that
// decides which registry entries qtkit owns. A state is written only after
// the registry write it describes has succeeded.
//
// Backends:
//   - file: a JSON document under the XDG state directory (default)
//   - sqlite: a single table in a local SQLite database
//   - redis: one key per scope and source on a shared Redis server
//   - memory: process-local, for tests and dry runs
package state
