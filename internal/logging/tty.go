package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTTY reports whether w is backed by a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// SupportsColor reports whether ANSI colours should be written to w.
// NO_COLOR and TERM=dumb disable colour; CLICOLOR_FORCE enables it for
// pipes, which is useful when qtkit runs under a CI log viewer.
func SupportsColor(w io.Writer) bool {
	return colorAllowed(IsTTY(w))
}

func colorAllowed(isTTY bool) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return isTTY
}

// ConfigureColor sets fatih/color's global switch from w, so reports printed
// with color.* follow the same rules as log output.
func ConfigureColor(w io.Writer) {
	color.NoColor = !SupportsColor(w)
}
