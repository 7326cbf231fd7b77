// Package detector selects the log format from the environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// LogFormat is the encoding used for log lines.
type LogFormat int

const (
	// FormatAuto defers to environment detection.
	FormatAuto LogFormat = iota
	// FormatPretty writes human readable lines.
	FormatPretty
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

// String returns the flag spelling of f.
func (f LogFormat) String() string {
	switch f {
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the log format suited to the process.
// Agents running under CI or with stderr redirected to a collector log JSON.
func DetectEnvironment() LogFormat {
	if isCI() || !term.IsTerminal(int(os.Stderr.Fd())) {
		return FormatJSON
	}
	return FormatPretty
}

func isCI() bool {
	ci := os.Getenv("CI")
	return ci == "true" || ci == "1"
}

// ResolveFormat applies the user's --log-format flag to the detected format.
// userFlag should be one of: "auto", "pretty", "json", or empty.
func ResolveFormat(detected LogFormat, userFlag string) LogFormat {
	switch userFlag {
	case "pretty", "text":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return detected
	}
}
