package tasklist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/calendar"
	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/uistate"
)

// Source loads the task lists shown in the tabs.
type Source interface {
	Inbox(ctx context.Context) ([]model.Task, error)
	Today(ctx context.Context, now time.Time) ([]model.Task, error)
	All(ctx context.Context) ([]model.Task, error)
	ByGoal(ctx context.Context, goalID int64) ([]model.Task, error)
}

// TasksLoadedMsg is sent when a list has been loaded. Tasks may be stale
// cached rows when Err is set.
type TasksLoadedMsg struct {
	View   uistate.ListView
	GoalID int64
	Tasks  []model.Task
	Err    error
}

// SelectedTaskMsg is sent when a user opens a task.
type SelectedTaskMsg struct {
	TaskID int64
}

// ToggleTaskMsg asks the parent to flip a task's done flag.
type ToggleTaskMsg struct {
	TaskID int64
}

// DeleteTaskMsg asks the parent to delete a task after confirmation.
type DeleteTaskMsg struct {
	TaskID int64
	Title  string
}

// ViewChangedMsg reports a tab switch so the parent can persist it.
type ViewChangedMsg struct {
	View   uistate.ListView
	GoalID int64
}

// MenuRequestMsg asks the parent to open the context menu on a task.
type MenuRequestMsg struct {
	TaskID int64
	Title  string
	Row    int
}

// tabs is the order tab switching cycles through. The goal tab only
// takes part when a goal is chosen.
var tabs = []uistate.ListView{
	uistate.ListInbox,
	uistate.ListToday,
	uistate.ListAll,
	uistate.ListGoal,
}

// Model is the main task list view component.
type Model struct {
	list        list.Model
	source      Source
	keys        *keys.KeyMap
	goals       map[int32]model.Goal
	view        uistate.ListView
	goalID      int64
	tasks       []model.Task
	query       string
	stale       bool
	searchMode  bool
	searchInput textinput.Model
	now         func() time.Time
	width       int
	height      int
}

// New creates a new task list model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	goals := make(map[int32]model.Goal)
	delegate := ItemDelegate{goals: goals}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("task", "tasks")

	si := textinput.New()
	si.Placeholder = "search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      src,
		keys:        k,
		goals:       goals,
		view:        uistate.ListInbox,
		searchInput: si,
		now:         time.Now,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the current list.
func (m Model) Init() tea.Cmd {
	return m.LoadTasks()
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		if msg.View != m.view || msg.GoalID != m.goalID {
			return m, nil
		}
		m.tasks = msg.Tasks
		m.stale = msg.Err != nil
		return m, m.refreshItems()

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		return m, m.refreshItems()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.refreshItems()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return SelectedTaskMsg{TaskID: t.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return ToggleTaskMsg{TaskID: t.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.SelectedTask(); ok {
			return m, func() tea.Msg { return DeleteTaskMsg{TaskID: t.ID, Title: t.Title} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Menu):
		if t, ok := m.SelectedTask(); ok {
			row := m.list.Index()%max(m.list.Paginator.PerPage, 1) + 2
			return m, func() tea.Msg { return MenuRequestMsg{TaskID: t.ID, Title: t.Title, Row: row} }
		}
		// An empty list gets the list menu.
		return m, func() tea.Msg { return MenuRequestMsg{Row: 2} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.NextTab):
		return m.cycleTab(1)

	case key.Matches(msg, m.keys.PrevTab):
		return m.cycleTab(-1)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) cycleTab(step int) (Model, tea.Cmd) {
	idx := 0
	for i, v := range tabs {
		if v == m.view {
			idx = i
		}
	}
	for range tabs {
		idx = (idx + step + len(tabs)) % len(tabs)
		if tabs[idx] != uistate.ListGoal || m.goalID != 0 {
			break
		}
	}
	return m, m.SetView(tabs[idx], m.goalID)
}

// SetView switches the list and reloads it. goalID is remembered so the
// goal tab can be revisited.
func (m *Model) SetView(view uistate.ListView, goalID int64) tea.Cmd {
	if view == uistate.ListGoal && goalID == 0 {
		view = uistate.ListInbox
	}
	m.view = view
	if goalID != 0 {
		m.goalID = goalID
	}
	m.tasks = nil
	m.list.ResetSelected()
	changed := ViewChangedMsg{View: view, GoalID: m.activeGoal()}
	return tea.Batch(
		m.refreshItems(),
		m.LoadTasks(),
		func() tea.Msg { return changed },
	)
}

// View renders the tab bar and the task list.
func (m Model) View() string {
	tabBar := m.renderTabs()

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, tabBar, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, tabBar, m.renderEmptyState())
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, m.list.View())
}

func (m Model) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(theme.ColorGray)

	var parts []string
	for _, v := range tabs {
		if v == uistate.ListGoal && m.goalID == 0 {
			continue
		}
		label := m.tabLabel(v)
		if v == m.view {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	bar := strings.Join(parts, "  ")
	if m.stale {
		bar += lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("  ⚠ offline")
	}
	if m.query != "" {
		bar += theme.HelpStyle.Render(fmt.Sprintf("  search: %q", m.query))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(bar)
}

func (m Model) tabLabel(v uistate.ListView) string {
	switch v {
	case uistate.ListToday:
		return "Today"
	case uistate.ListAll:
		return "All"
	case uistate.ListGoal:
		if g, ok := m.goals[int32(m.goalID)]; ok {
			return g.Title
		}
		return "Goal"
	default:
		return "Inbox"
	}
}

// renderEmptyState shows guidance text when the list is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 1).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.query != "" {
		return style.Render("No matching tasks.\nPress / then enter to clear the search.")
	}

	switch m.view {
	case uistate.ListToday:
		return style.Render("Nothing scheduled today.\n\nPress n to add a task.")
	case uistate.ListInbox:
		return style.Render("Inbox zero.\n\nPress n to capture a task.")
	default:
		return style.Render("No tasks here yet.\n\nPress n to add one.")
	}
}

// refreshItems rebuilds the list items from the loaded tasks and query.
func (m *Model) refreshItems() tea.Cmd {
	var ordered []model.Task
	if m.view == uistate.ListAll {
		s := calendar.Partition(m.tasks, m.query)
		ordered = append(append(append(ordered, s.Scheduled...), s.Backlog...), s.Completed...)
	} else {
		q := strings.ToLower(m.query)
		for _, t := range m.tasks {
			if q == "" || strings.Contains(strings.ToLower(t.Title), q) {
				ordered = append(ordered, t)
			}
		}
	}

	items := make([]list.Item, len(ordered))
	for i, t := range ordered {
		items[i] = TaskItem{Task: t}
	}
	return m.list.SetItems(items)
}

// LoadTasks returns a tea.Cmd that fetches the current list.
func (m Model) LoadTasks() tea.Cmd {
	src := m.source
	view := m.view
	goalID := m.activeGoal()
	now := m.now()
	return func() tea.Msg {
		ctx := context.Background()
		var tasks []model.Task
		var err error
		switch view {
		case uistate.ListToday:
			tasks, err = src.Today(ctx, now)
		case uistate.ListAll:
			tasks, err = src.All(ctx)
		case uistate.ListGoal:
			tasks, err = src.ByGoal(ctx, goalID)
		default:
			tasks, err = src.Inbox(ctx)
		}
		return TasksLoadedMsg{View: view, GoalID: goalID, Tasks: tasks, Err: err}
	}
}

func (m Model) activeGoal() int64 {
	if m.view == uistate.ListGoal {
		return m.goalID
	}
	return 0
}

// SelectedTask returns the highlighted task.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Tasks returns the loaded tasks of the current list.
func (m Model) Tasks() []model.Task {
	return m.tasks
}

// CurrentView returns the active tab and its goal id.
func (m Model) CurrentView() (uistate.ListView, int64) {
	return m.view, m.activeGoal()
}

// SetGoals updates the goals used for badges and the goal tab label.
func (m *Model) SetGoals(goals []model.Goal) {
	for k := range m.goals {
		delete(m.goals, k)
	}
	for _, g := range goals {
		m.goals[int32(g.ID)] = g
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
