package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/uistate"
)

func openMenu(kind uistate.MenuKind) Model {
	m := New(keys.DefaultKeyMap())
	m.Open(uistate.ContextMenu{Open: true, X: 3, Y: 4, Kind: kind, TargetID: 9, Label: "Water plants"})
	return m
}

func TestChooseTaskAction(t *testing.T) {
	m := openMenu(uistate.MenuTask)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ChoiceMsg{Action: ActionToggle, Kind: uistate.MenuTask, TargetID: 9}, cmd())
	assert.Empty(t, m.View())
}

func TestUpWraps(t *testing.T) {
	m := openMenu(uistate.MenuList)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ActionRefresh, cmd().(ChoiceMsg).Action)
}

func TestEscCloses(t *testing.T) {
	m := openMenu(uistate.MenuTask)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestViewFitsMenuBox(t *testing.T) {
	m := openMenu(uistate.MenuTask)
	view := m.View()
	assert.Contains(t, view, "Unschedule")
	assert.LessOrEqual(t, lipgloss.Width(view), uistate.MenuWidth)
	assert.LessOrEqual(t, lipgloss.Height(view), uistate.MenuHeight)

	x, y := m.Position()
	assert.Equal(t, 3, x)
	assert.Equal(t, 4, y)
}
