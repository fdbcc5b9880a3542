package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// List tabs
	NextTab key.Binding
	PrevTab key.Binding

	// Views
	Goals    key.Binding
	Calendar key.Binding
	Sidebar  key.Binding
	Theme    key.Binding
	Menu     key.Binding

	// Task actions
	New          key.Binding
	Toggle       key.Binding
	Delete       key.Binding
	EditTitle    key.Binding
	EditDate     key.Binding
	EditStart    key.Binding
	EditEnd      key.Binding
	Unschedule   key.Binding
	DurationUp   key.Binding
	DurationDown key.Binding
	CycleGoal    key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "l"),
			key.WithHelp("tab", "next list"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "h"),
			key.WithHelp("shift+tab", "previous list"),
		),
		Goals: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goals"),
		),
		Calendar: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "calendar"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle sidebar"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "toggle theme"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "context menu"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x", "toggle done"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete"),
		),
		EditTitle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "edit title"),
		),
		EditDate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "edit date"),
		),
		EditStart: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "edit start"),
		),
		EditEnd: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit end"),
		),
		Unschedule: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unschedule"),
		),
		DurationUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "15 min longer"),
		),
		DurationDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "15 min shorter"),
		),
		CycleGoal: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "next goal"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.New,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.NextTab, k.PrevTab, k.Search, k.Command, k.Help, k.Refresh},
		{k.Goals, k.Calendar, k.Sidebar, k.Theme, k.Menu},
		{k.New, k.Toggle, k.Delete, k.Unschedule, k.CycleGoal},
		{k.EditTitle, k.EditDate, k.EditStart, k.EditEnd, k.DurationUp, k.DurationDown},
	}
}
