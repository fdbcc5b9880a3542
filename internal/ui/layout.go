package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/theme"
)

// SidebarWidth is the width of the goal sidebar when it is open.
const SidebarWidth = 24

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	SidebarOpen     bool
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the width left for the main view, after the
// sidebar when it is shown.
func (l Layout) ContentWidth() int {
	if l.SidebarShown() {
		return l.Width - SidebarWidth
	}
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// SidebarShown reports whether the sidebar is drawn. Narrow terminals
// hide it even when it is open.
func (l Layout) SidebarShown() bool {
	return l.SidebarOpen && l.Width >= SidebarWidth*3
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar: the toast when one is
// showing, keyboard hints otherwise.
func (l Layout) RenderStatusBar(hints, toast string) string {
	left := hints
	if toast != "" {
		left = toast
	}
	rendered := theme.StatusBarStyle.Render(left)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderBody places the sidebar, when shown, to the left of content.
func (l Layout) RenderBody(sidebar, content string) string {
	if !l.SidebarShown() {
		return content
	}
	side := theme.SidebarStyle.
		Width(SidebarWidth - 1).
		Height(l.ContentHeight()).
		Render(sidebar)
	return lipgloss.JoinHorizontal(lipgloss.Top, side, content)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
