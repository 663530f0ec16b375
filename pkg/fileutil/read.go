package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/qtkit/internal/errors"
)

// MaxFileSize bounds registry and state reads. Kit registries are a few
// kilobytes; a file past 4MB is not one.
const MaxFileSize = 4 << 20

// ErrFileTooLarge is returned when a read would exceed its limit.
var ErrFileTooLarge = errors.Newf("file exceeds maximum size of %d bytes", MaxFileSize)

// ReadFileWithLimit returns the contents of path, failing with
// ErrFileTooLarge past MaxFileSize. A missing file keeps fs.ErrNotExist in
// the chain.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s is %d bytes", path, info.Size())
	}
	data, err := ReadLimited(f, MaxFileSize)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return data, nil
}

// ReadLimited reads r to EOF, failing with ErrFileTooLarge once more than
// limit bytes arrive. Sizes reported by Stat can be stale, so the limit is
// enforced on the stream as well.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
