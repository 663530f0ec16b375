// Package toolchain classifies Qt installation directories by the platform
// or compiler family encoded in their directory names.
package toolchain

import "strings"

// Tag is the platform or compiler family of an installation.
type Tag string

// Known tags. Other is returned for anything unrecognized.
const (
	MSVC    Tag = "msvc"
	MinGW   Tag = "mingw"
	MacOS   Tag = "macos"
	IOS     Tag = "ios"
	Android Tag = "android"
	Other   Tag = "other"
)

// prefixes is checked in order against the first token of the last segment.
var prefixes = []Tag{MSVC, MinGW, MacOS, IOS, Android}

// String implements fmt.Stringer.
func (t Tag) String() string {
	return string(t)
}

// Classify returns the tag for an installation path. Only the final path
// segment is inspected; both slash and backslash separate segments so
// Windows paths classify the same on every host.
func Classify(installation string) Tag {
	first, _, _ := strings.Cut(LastSegment(installation), "_")
	for _, p := range prefixes {
		if strings.HasPrefix(first, string(p)) {
			return p
		}
	}
	return Other
}

// LastSegment returns the final non-empty path segment of p.
func LastSegment(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
