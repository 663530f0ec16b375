// Package backup snapshots kit registry files before qtkit rewrites them.
//
// Each backup is a timestamped directory holding the copied registry and a
// manifest.json with the file's SHA-256 hash, grouped by scope:
//
//	<data dir>/qtkit/backups/
//	├── global/
//	│   └── 20260123T100712/
//	│       ├── manifest.json
//	│       └── cmake-tools-kits.json
//	└── workspace-<hash>-<folder name>/
//	    └── ...
//
// Manager implements registry.Backuper, so passing it to the reconciler
// backs up a registry once per rewrite. Old backups beyond the retention
// count are pruned after every new backup.
//
// Restore verifies the hash before copying a file back, returning
// ErrBackupCorrupted on mismatch.
package backup
