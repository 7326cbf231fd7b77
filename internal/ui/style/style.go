// Package style provides the brand colors and icons shared by the logger and
// the query printer.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
	Dot     = "●"
	Circle  = "○"
)

// Health values reported by sources.
const (
	HealthUp       = "Up"
	HealthDown     = "Down"
	HealthStarting = "Starting"
)

// Health returns the icon and color for an instance health value.
func Health(health string) (string, lipgloss.Color) {
	switch health {
	case HealthUp:
		return Check, Green
	case HealthDown:
		return Cross, Red
	case HealthStarting:
		return Circle, Yellow
	default:
		return Circle, Slate
	}
}
