package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/internal/state"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	manifestName = "manifest.json"
	idLayout     = "20060102T150405"
)

// Manager creates, lists, restores and prunes registry backups.
type Manager struct {
	rootDir        string
	retentionCount int
	now            func() time.Time

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetentionCount sets the number of backups to keep per scope.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// NewManager creates a backup Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:        paths.BackupDir(),
		retentionCount: DefaultRetentionCount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RootDir returns the backup root.
func (m *Manager) RootDir() string {
	return m.rootDir
}

// ScopeDirName returns the directory backups of scope are grouped under.
func ScopeDirName(scope state.Scope) string {
	if scope.IsGlobal() {
		return "global"
	}
	sum := sha256.Sum256([]byte(scope.Folder))
	base := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, filepath.Base(scope.Folder))
	return "workspace-" + hex.EncodeToString(sum[:6]) + "-" + base
}

// Backup copies the registry at path. It implements registry.Backuper. A
// missing file is not an error and creates no backup.
func (m *Manager) Backup(_ context.Context, scope state.Scope, path string) error {
	_, err := m.Create(scope, path)
	if errors.Is(err, ErrNoBackupsFound) {
		return nil
	}
	return err
}

// Create copies the file at path into a new backup for scope and prunes
// backups beyond the retention count.
func (m *Manager) Create(scope state.Scope, path string) (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoBackupsFound, "%s does not exist", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, errors.Newf("%s is a directory", path)
	}

	now := m.now()
	id := m.uniqueID(scope, now)
	dir := m.backupPath(scope, id)
	if err := os.MkdirAll(dir, paths.DefaultDirPerm); err != nil {
		return nil, errors.Wrap(err, "creating backup directory")
	}

	rel := filepath.Base(path)
	hash, mode, err := copyFile(path, filepath.Join(dir, rel))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Wrapf(err, "backing up %s", path)
	}

	manifest := &Manifest{
		Version:      ManifestVersion,
		CreatedAt:    now.UTC(),
		Scope:        scope.Key(),
		QtkitVersion: Version,
		ID:           id,
		Files: []File{{
			OriginalPath: path,
			RelPath:      rel,
			SHA256Hash:   hash,
			Mode:         mode,
		}},
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(dir, manifestName), manifest); err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Wrap(err, "writing manifest")
	}

	if err := m.prune(scope, m.retentionCount); err != nil {
		return manifest, errors.Wrap(err, "pruning old backups")
	}
	return manifest, nil
}

// uniqueID returns a timestamp ID, suffixed when a backup with the same
// second already exists.
func (m *Manager) uniqueID(scope state.Scope, now time.Time) string {
	base := now.UTC().Format(idLayout)
	id := base
	for i := 1; ; i++ {
		if _, err := os.Stat(m.backupPath(scope, id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s-%02d", base, i)
	}
}

// Restore copies the files of a backup back to their original locations.
func (m *Manager) Restore(scope state.Scope, id string) (*Manifest, error) {
	manifest, err := m.Get(scope, id)
	if err != nil {
		return nil, err
	}

	dir := m.backupPath(scope, id)
	for _, f := range manifest.Files {
		src := filepath.Join(dir, f.RelPath)

		hash, err := hashFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", f.RelPath)
		}
		if hash != f.SHA256Hash {
			return nil, errors.Wrapf(ErrBackupCorrupted, "file %s hash mismatch", f.RelPath)
		}

		data, err := os.ReadFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", f.RelPath)
		}
		if err := fileutil.AtomicWriteFileMkdir(f.OriginalPath, data, f.Mode.Perm()); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", f.OriginalPath)
		}
	}
	return manifest, nil
}

// List returns the backups of scope, newest first.
func (m *Manager) List(scope state.Scope) ([]Manifest, error) {
	entries, err := os.ReadDir(m.scopeDir(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupsFound
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(scope, entry.Name())
		if err != nil {
			continue
		}
		manifests = append(manifests, *manifest)
	}
	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return manifests, nil
}

// Latest returns the newest backup of scope.
func (m *Manager) Latest(scope state.Scope) (*Manifest, error) {
	manifests, err := m.List(scope)
	if err != nil {
		return nil, err
	}
	return &manifests[0], nil
}

// Prune removes all but the newest keep backups of scope.
func (m *Manager) Prune(scope state.Scope, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prune(scope, keep)
}

func (m *Manager) prune(scope state.Scope, keep int) error {
	if keep < 0 {
		return errors.New("keep must be non-negative")
	}

	manifests, err := m.List(scope)
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil
		}
		return err
	}

	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(m.backupPath(scope, manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", manifests[i].ID)
		}
	}
	return nil
}

// Get returns the manifest of one backup.
func (m *Manager) Get(scope state.Scope, id string) (*Manifest, error) {
	if id == "" {
		return nil, errors.New("backup ID is required")
	}

	data, err := os.ReadFile(filepath.Join(m.backupPath(scope, id), manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s not found", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	manifest.ID = id
	return &manifest, nil
}

func (m *Manager) scopeDir(scope state.Scope) string {
	return filepath.Join(m.rootDir, ScopeDirName(scope))
}

func (m *Manager) backupPath(scope state.Scope, id string) string {
	return filepath.Join(m.scopeDir(scope), id)
}

// hashFile computes the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "reading file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies src to dst, returning the SHA256 hash and mode of src.
func copyFile(src, dst string) (hash string, mode fs.FileMode, err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return "", 0, errors.Wrap(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "stat source file")
	}
	mode = srcInfo.Mode()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, errors.Wrap(err, "creating destination file")
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dstFile, h), srcFile); err != nil {
		dstFile.Close()
		return "", 0, errors.Wrap(err, "copying file")
	}
	if err := dstFile.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing destination file")
	}

	return hex.EncodeToString(h.Sum(nil)), mode, nil
}
