package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/ui/toast"
)

// toggleTheme flips between light and dark and repaints every view.
func (m *Model) toggleTheme() tea.Cmd {
	if err := m.state.ToggleTheme(bg()); err != nil {
		m.logger.Warn("failed on saving theme", "error", err)
	}
	theme.Apply(string(m.state.Theme))
	// Views cache rendered content; rebuild it with the new palette.
	m.detail.SetGoals(m.goalList)
	m.resize()
	return m.toast.Show(toast.Info("Theme: " + string(m.state.Theme)))
}
