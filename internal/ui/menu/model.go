// Package menu renders the context menu opened on a task or a list.
package menu

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/uistate"
)

// Action names a menu entry.
type Action string

const (
	ActionOpen       Action = "open"
	ActionToggle     Action = "toggle"
	ActionUnschedule Action = "unschedule"
	ActionDelete     Action = "delete"
	ActionNewTask    Action = "new"
	ActionClearDone  Action = "clear-done"
	ActionRefresh    Action = "refresh"
)

// Item is one menu entry.
type Item struct {
	Label  string
	Action Action
}

var taskItems = []Item{
	{"Open", ActionOpen},
	{"Toggle done", ActionToggle},
	{"Unschedule", ActionUnschedule},
	{"Delete", ActionDelete},
}

var listItems = []Item{
	{"New task", ActionNewTask},
	{"Clear done", ActionClearDone},
	{"Refresh", ActionRefresh},
}

// ChoiceMsg reports the chosen entry.
type ChoiceMsg struct {
	Action   Action
	Kind     uistate.MenuKind
	TargetID int64
}

// CloseMsg signals the menu was dismissed.
type CloseMsg struct{}

// Model is the context menu component. It draws whatever menu the
// application state holds.
type Model struct {
	menu   uistate.ContextMenu
	items  []Item
	cursor int
	keys   *keys.KeyMap
}

// New creates a closed menu.
func New(k *keys.KeyMap) Model {
	return Model{keys: k}
}

// Open shows the entries for the state's menu kind.
func (m *Model) Open(menu uistate.ContextMenu) {
	m.menu = menu
	m.cursor = 0
	m.items = taskItems
	if menu.Kind == uistate.MenuList {
		m.items = listItems
	}
}

// Update handles navigation while the menu is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !m.menu.Open {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Back), key.Matches(km, m.keys.Menu):
		m.menu.Open = false
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(km, m.keys.Down):
		m.cursor = (m.cursor + 1) % len(m.items)

	case key.Matches(km, m.keys.Up):
		m.cursor = (m.cursor - 1 + len(m.items)) % len(m.items)

	case key.Matches(km, m.keys.Select):
		choice := ChoiceMsg{
			Action:   m.items[m.cursor].Action,
			Kind:     m.menu.Kind,
			TargetID: m.menu.TargetID,
		}
		m.menu.Open = false
		return m, func() tea.Msg { return choice }
	}
	return m, nil
}

// Position returns the top-left cell of the menu.
func (m Model) Position() (int, int) {
	return m.menu.X, m.menu.Y
}

// View renders the menu box, or "" when closed.
func (m Model) View() string {
	if !m.menu.Open {
		return ""
	}
	inner := uistate.MenuWidth - 4
	lines := make([]string, 0, len(m.items)+1)
	if m.menu.Label != "" {
		lines = append(lines, theme.HelpStyle.Width(inner).MaxWidth(inner).Render(m.menu.Label))
	}
	for i, it := range m.items {
		style := theme.ListItemStyle
		if i == m.cursor {
			style = theme.SelectedItemStyle
		}
		lines = append(lines, style.Width(inner).MaxWidth(inner).Render(it.Label))
	}
	return theme.MenuStyle.Render(strings.Join(lines, "\n"))
}
