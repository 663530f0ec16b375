package installation

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/internal/paths"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// AdditionalPath is a Qt installation registered by its qtpaths or qmake
// binary (or the directory holding it) instead of through a root.
type AdditionalPath struct {
	Name string `mapstructure:"name" yaml:"name,omitempty" json:"name,omitempty"`
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// Info is the parsed output of "qtpaths -query".
type Info struct {
	// Name is the user-supplied name of the additional path, if any.
	Name string
	// QtPathsBin is the binary that was queried.
	QtPathsBin string
	// IsVCPKG is true for Qt builds installed through vcpkg.
	IsVCPKG bool

	keys   []string
	values map[string]string
}

// NewInfo returns an empty Info for bin.
func NewInfo(name, bin string) *Info {
	return &Info{
		Name:       name,
		QtPathsBin: bin,
		IsVCPKG:    isVCPKGPath(bin),
		values:     make(map[string]string),
	}
}

// Get returns the value for key.
func (i *Info) Get(key string) string {
	return i.values[key]
}

// Lookup returns the value for key and whether it was present.
func (i *Info) Lookup(key string) (string, bool) {
	v, ok := i.values[key]
	return v, ok
}

// Set stores key, keeping first-seen order.
func (i *Info) Set(key, value string) {
	if _, ok := i.values[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.values[key] = value
}

// Keys returns the keys in output order.
func (i *Info) Keys() []string {
	return append([]string(nil), i.keys...)
}

// DefaultName is the kit name used when the path was registered without
// one: Qt-<version>-<xspec>.
func (i *Info) DefaultName() string {
	return "Qt-" + i.Get("QT_VERSION") + "-" + i.Get("QMAKE_XSPEC")
}

// ParseQuery parses "KEY:VALUE" lines. Values may contain colons (Windows
// drive letters); lines without a colon are ignored.
func ParseQuery(r io.Reader, info *Info) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		info.Set(key, strings.TrimSpace(value))
	}
	return errors.Wrap(sc.Err(), "reading query output")
}

// QtPathsQuerier runs qtpaths (or qmake) to describe an installation.
type QtPathsQuerier struct {
	// GOOS selects executable suffixes. Empty means the running host.
	GOOS string
}

// ResolveBinary turns an additional path into the binary to query. A
// directory is searched for bin/qtpaths, then bin/qmake.
func (q *QtPathsQuerier) ResolveBinary(p string) (string, error) {
	if IsQtPathsOrQMake(p) && fileExists(p) {
		return p, nil
	}
	if dirExists(p) {
		suffix := paths.ExeSuffix(hostGOOS(q.GOOS))
		for _, dir := range []string{filepath.Join(p, "bin"), p} {
			for _, name := range []string{"qtpaths6", "qtpaths", "qmake6", "qmake"} {
				candidate := filepath.Join(dir, name+suffix)
				if fileExists(candidate) {
					return candidate, nil
				}
			}
		}
	}
	return "", errors.WithDetailf(errors.ErrNotFound, "no qtpaths or qmake at %s", p)
}

// maxQueryOutput bounds "-query" output; a real Qt prints a few kilobytes.
const maxQueryOutput = 1 << 20

// Query runs "<bin> -query" for the additional path and parses the output.
func (q *QtPathsQuerier) Query(ctx context.Context, ap AdditionalPath) (*Info, error) {
	bin, err := q.ResolveBinary(ap.Path)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-query")
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "running %s -query", bin)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "running %s -query", bin)
	}
	out, readErr := fileutil.ReadLimited(stdout, maxQueryOutput)
	if readErr != nil {
		// Unblock the child so Wait returns.
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		return nil, errors.WithDetail(errors.Wrapf(err, "running %s -query", bin), stderr.String())
	}
	if readErr != nil {
		return nil, errors.Wrapf(readErr, "reading %s -query output", bin)
	}

	info := NewInfo(ap.Name, bin)
	if err := ParseQuery(bytes.NewReader(out), info); err != nil {
		return nil, err
	}
	return info, nil
}

func isVCPKGPath(p string) bool {
	return strings.Contains(strings.ToLower(filepath.ToSlash(p)), "vcpkg")
}
