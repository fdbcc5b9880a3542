package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// Apply selects the light or dark half of every adaptive color.
func Apply(name string) {
	lipgloss.SetHasDarkBackground(name == "dark")
}

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SidebarStyle frames the goal sidebar.
var SidebarStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.NormalBorder(), false, true, false, false).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// DimmedStyle renders completed tasks.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Strikethrough(true)

// SectionStyle labels groups inside a list.
var SectionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray).
	PaddingLeft(1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// MenuStyle frames the context menu popup.
var MenuStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBlue).
	Padding(0, 1)

// SuccessToastStyle and ErrorToastStyle render the toast line.
var (
	SuccessToastStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	ErrorToastStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
)

// ScheduleStyle renders a task's date and time.
var ScheduleStyle = lipgloss.NewStyle().Foreground(ColorYellow)

// CategoryStyle returns a color-coded style for a goal category.
func CategoryStyle(category string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch category {
	case "growth":
		return base.Foreground(ColorGreen)
	case "maintenance":
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGray)
	}
}

// GoalStyle colors a goal label with the goal's own hex color, falling
// back to blue.
func GoalStyle(hex string) lipgloss.Style {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		return lipgloss.NewStyle().Foreground(ColorBlue)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}
