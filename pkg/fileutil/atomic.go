// Package fileutil holds the file helpers shared by the registry, state,
// config and backup writers.
package fileutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// AtomicWriteFile replaces path with data through a temp file in the same
// directory, so CMake Tools never observes a half-written registry. perm
// applies to new files; an existing file keeps its mode. The directory must
// exist.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".qtkit-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "setting file permissions")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		committed = true
		return errors.Wrapf(err, "replacing %s", path)
	}
	committed = true
	return nil
}

// AtomicWriteFileMkdir creates the parent directory first. Workspace
// registries live in .vscode, which often does not exist yet.
func AtomicWriteFileMkdir(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating parent directory")
	}
	return AtomicWriteFile(path, data, perm)
}

// MarshalJSONIndent encodes v the way CMake Tools writes its registries:
// two-space indent, trailing newline, no HTML escaping of flags like <x>.
func MarshalJSONIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshaling JSON")
	}
	return buf.Bytes(), nil
}

// AtomicWriteJSON writes v with MarshalJSONIndent.
func AtomicWriteJSON(path string, v any) error {
	data, err := MarshalJSONIndent(v)
	if err != nil {
		return err
	}
	return AtomicWriteFile(path, data, 0o644)
}

// AtomicWriteYAML writes v as YAML.
func AtomicWriteYAML(path string, v any) (err error) {
	// yaml.v3 panics on funcs and channels.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	return AtomicWriteFile(path, data, 0o644)
}
