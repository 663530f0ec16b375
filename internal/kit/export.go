package kit

import (
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/qtkit/internal/errors"
	"github.com/thoreinstein/qtkit/pkg/fileutil"
)

// Format is an export encoding for kits.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat indicates an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported export formats.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTOML)}
}

// tomlDocument wraps kits because TOML has no top-level arrays.
type tomlDocument struct {
	Kits []Kit `toml:"kits"`
}

// Encode writes kits to w in the given format.
func Encode(w io.Writer, kits []Kit, format Format) error {
	if kits == nil {
		kits = []Kit{}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON, "":
		data, err = fileutil.MarshalJSONIndent(kits)
	case FormatYAML:
		data, err = yaml.Marshal(kits)
	case FormatTOML:
		data, err = toml.Marshal(tomlDocument{Kits: kits})
	default:
		return errors.WithDetailf(ErrUnknownFormat, "format %q (valid: json, yaml, toml)", format)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding kits as %s", format)
	}

	_, err = w.Write(data)
	return errors.Wrap(err, "writing kits")
}
