package backup

import (
	"io/fs"
	"time"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// DefaultRetentionCount is the default number of backups kept per scope.
const DefaultRetentionCount = 5

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no backups exist for the scope.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a backed up file no longer matches the
	// hash recorded in its manifest.
	ErrBackupCorrupted = errors.New("backup corrupted")
)

// Manifest describes one backup. It is stored as manifest.json in the
// backup directory.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// Scope is the state.Scope key of the backed up registry.
	Scope string `json:"scope"`

	Files []File `json:"files"`

	// QtkitVersion is the version of qtkit that created this backup.
	QtkitVersion string `json:"qtkit_version"`

	// ID is the backup directory name. It is populated when loading from
	// disk and not stored in JSON.
	ID string `json:"-"`
}

// File describes a single backed up file.
type File struct {
	OriginalPath string      `json:"original_path"`
	RelPath      string      `json:"rel_path"`
	SHA256Hash   string      `json:"sha256_hash"`
	Mode         fs.FileMode `json:"mode"`
}
