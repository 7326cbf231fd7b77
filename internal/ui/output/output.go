// Package output builds terminal outputs with the color rules shared by the
// logger and the query printer.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func noColor() bool {
	return os.Getenv("NO_COLOR") != ""
}

// ColorProfile returns Ascii when NO_COLOR is set and the detected profile otherwise.
func ColorProfile() termenv.Profile {
	if noColor() {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New creates the termenv.Output used for log lines, defaulting to stderr.
// Log lines follow the environment profile even when stderr is redirected.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	opts = append(opts,
		termenv.WithProfile(ColorProfile()),
		termenv.WithTTY(true),
	)

	return termenv.NewOutput(w, opts...)
}

// Renderer creates the lipgloss renderer for command results on w,
// defaulting to stdout. Results are colored only when w is a terminal.
func Renderer(w io.Writer) *lipgloss.Renderer {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	if noColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}
