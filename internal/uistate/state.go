// Package uistate holds the TUI's application state: theme, sidebar,
// calendar view, current list, selection, and the context menu. The state
// is an explicit value owned by the root model; persisted fields are
// written through a KV store so they survive restarts.
package uistate

import (
	"context"
	"fmt"
	"strconv"
)

// Theme is the color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// CalendarView is the calendar granularity.
type CalendarView string

const (
	CalendarMonth CalendarView = "month"
	CalendarWeek  CalendarView = "week"
)

// ListView is the task list currently shown.
type ListView string

const (
	ListInbox ListView = "inbox"
	ListToday ListView = "today"
	ListAll   ListView = "all"
	ListGoal  ListView = "goal"
)

// MenuKind is what a context menu acts on.
type MenuKind string

const (
	MenuTask MenuKind = "task"
	MenuList MenuKind = "list"
)

// Context menu size in terminal cells and its distance from the edges.
const (
	MenuWidth  = 22
	MenuHeight = 8
	MenuMargin = 1
)

// Preference keys.
const (
	keyTheme        = "ui.theme"
	keySidebar      = "ui.sidebar_open"
	keyCalendarView = "ui.calendar_view"
	keyListView     = "ui.list_view"
	keyListGoal     = "ui.list_goal_id"
)

// KV persists preference strings.
type KV interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
}

// ContextMenu is the popup opened on a task or a goal.
type ContextMenu struct {
	Open     bool
	X, Y     int
	Kind     MenuKind
	TargetID int64
	Label    string
}

// State is the application state.
type State struct {
	kv KV

	Theme          Theme
	SidebarOpen    bool
	CalendarView   CalendarView
	ListView       ListView
	ListGoalID     int64
	SelectedTaskID int64
	Menu           ContextMenu
	Authenticated  bool
}

// New returns the default state backed by kv. kv may be nil, in which case
// nothing is persisted.
func New(kv KV) *State {
	return &State{
		kv:           kv,
		Theme:        ThemeLight,
		SidebarOpen:  true,
		CalendarView: CalendarMonth,
		ListView:     ListInbox,
	}
}

// Load restores the persisted fields. Unknown stored values are ignored.
func (s *State) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}

	if v, ok, err := s.kv.GetPref(ctx, keyTheme); err != nil {
		return fmt.Errorf("loading theme: %w", err)
	} else if ok && (Theme(v) == ThemeLight || Theme(v) == ThemeDark) {
		s.Theme = Theme(v)
	}

	if v, ok, err := s.kv.GetPref(ctx, keySidebar); err != nil {
		return fmt.Errorf("loading sidebar: %w", err)
	} else if ok {
		if open, err := strconv.ParseBool(v); err == nil {
			s.SidebarOpen = open
		}
	}

	if v, ok, err := s.kv.GetPref(ctx, keyCalendarView); err != nil {
		return fmt.Errorf("loading calendar view: %w", err)
	} else if ok && (CalendarView(v) == CalendarMonth || CalendarView(v) == CalendarWeek) {
		s.CalendarView = CalendarView(v)
	}

	if v, ok, err := s.kv.GetPref(ctx, keyListView); err != nil {
		return fmt.Errorf("loading list view: %w", err)
	} else if ok && validListView(ListView(v)) {
		s.ListView = ListView(v)
	}

	if v, ok, err := s.kv.GetPref(ctx, keyListGoal); err != nil {
		return fmt.Errorf("loading list goal: %w", err)
	} else if ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.ListGoalID = id
		}
	}

	if s.ListView == ListGoal && s.ListGoalID == 0 {
		s.ListView = ListInbox
	}
	return nil
}

// ToggleTheme switches between light and dark.
func (s *State) ToggleTheme(ctx context.Context) error {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
	} else {
		s.Theme = ThemeDark
	}
	return s.save(ctx, keyTheme, string(s.Theme))
}

// ToggleSidebar shows or hides the goal sidebar.
func (s *State) ToggleSidebar(ctx context.Context) error {
	s.SidebarOpen = !s.SidebarOpen
	return s.save(ctx, keySidebar, strconv.FormatBool(s.SidebarOpen))
}

// SetCalendarView switches the calendar between month and week.
func (s *State) SetCalendarView(ctx context.Context, view CalendarView) error {
	if view != CalendarMonth && view != CalendarWeek {
		return fmt.Errorf("unknown calendar view %q", view)
	}
	s.CalendarView = view
	return s.save(ctx, keyCalendarView, string(view))
}

// SetListView switches the task list. goalID is only kept for ListGoal.
func (s *State) SetListView(ctx context.Context, view ListView, goalID int64) error {
	if !validListView(view) {
		return fmt.Errorf("unknown list view %q", view)
	}
	if view == ListGoal && goalID <= 0 {
		return fmt.Errorf("goal view needs a goal id")
	}
	if view != ListGoal {
		goalID = 0
	}
	s.ListView = view
	s.ListGoalID = goalID
	if err := s.save(ctx, keyListView, string(view)); err != nil {
		return err
	}
	return s.save(ctx, keyListGoal, strconv.FormatInt(goalID, 10))
}

// SelectTask marks a task as selected. Zero clears the selection.
func (s *State) SelectTask(id int64) {
	s.SelectedTaskID = id
}

// OpenContextMenu opens the menu at (x, y), moved left or up as needed so
// it fits inside a width×height viewport.
func (s *State) OpenContextMenu(x, y int, kind MenuKind, targetID int64, label string, width, height int) {
	s.Menu = ContextMenu{
		Open:     true,
		X:        clamp(x, MenuWidth, width),
		Y:        clamp(y, MenuHeight, height),
		Kind:     kind,
		TargetID: targetID,
		Label:    label,
	}
}

// CloseContextMenu hides the menu.
func (s *State) CloseContextMenu() {
	s.Menu = ContextMenu{}
}

// Logout drops everything tied to the signed-in user. Persisted view
// preferences are kept.
func (s *State) Logout() {
	s.Authenticated = false
	s.SelectedTaskID = 0
	s.Menu = ContextMenu{}
}

func (s *State) save(ctx context.Context, key, value string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.SetPref(ctx, key, value); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func clamp(pos, size, limit int) int {
	if pos+size > limit {
		pos = limit - size - MenuMargin
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func validListView(v ListView) bool {
	switch v {
	case ListInbox, ListToday, ListAll, ListGoal:
		return true
	}
	return false
}
