package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/service"
	appsync "github.com/nhle/miledo/internal/sync"
	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/ui"
	"github.com/nhle/miledo/internal/ui/calview"
	"github.com/nhle/miledo/internal/ui/command"
	"github.com/nhle/miledo/internal/ui/detail"
	"github.com/nhle/miledo/internal/ui/goalmgr"
	helpview "github.com/nhle/miledo/internal/ui/help"
	"github.com/nhle/miledo/internal/ui/menu"
	"github.com/nhle/miledo/internal/ui/taskform"
	"github.com/nhle/miledo/internal/ui/tasklist"
	"github.com/nhle/miledo/internal/ui/toast"
	"github.com/nhle/miledo/internal/uistate"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewGoals
	ViewCalendar
	ViewConfirm
)

// Session is the part of the credential session the UI drives.
type Session interface {
	Terminate() error
}

// Deps are the collaborators of the root model. Poller and Session may be
// nil, which disables background refresh and logout.
type Deps struct {
	Tasks   *service.TaskService
	Goals   *service.GoalService
	State   *uistate.State
	Session Session
	Poller  *appsync.Poller
	Logger  *slog.Logger
	Now     func() time.Time
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	tasks        *service.TaskService
	goals        *service.GoalService
	session      Session
	poller       *appsync.Poller
	state        *uistate.State
	logger       *slog.Logger

	taskList    tasklist.Model
	detail      detail.Model
	taskForm    taskform.Model
	goalView    goalmgr.Model
	calendar    calview.Model
	menu        menu.Model
	helpView    helpview.Model
	commandView command.Model
	toast       toast.Model

	confirmForm *huh.Form
	cb          *confirmBindings
	pending     pendingAction

	goalList    []model.Goal
	ready       bool
	authMessage string
}

// New creates the root application model. The state should already be
// loaded from its store.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.State == nil {
		d.State = uistate.New(nil)
	}

	list := tasklist.New(d.Tasks, k, 80, 24)
	list.SetView(d.State.ListView, d.State.ListGoalID)

	layout := ui.NewLayout(80, 24)
	layout.SidebarOpen = d.State.SidebarOpen

	return Model{
		currentView: ViewList,
		layout:      layout,
		keys:        k,
		tasks:       d.Tasks,
		goals:       d.Goals,
		session:     d.Session,
		poller:      d.Poller,
		state:       d.State,
		logger:      d.Logger,
		taskList:    list,
		detail:      detail.New(k, 80, 24),
		taskForm:    taskform.New(80, 24),
		goalView:    goalmgr.New(d.Goals, k, 80, 24),
		calendar:    calview.New(d.Tasks, k, d.State.CalendarView, d.Now(), 80, 24),
		menu:        menu.New(k),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		toast:       toast.New(toast.DefaultTTL),
		cb:          &confirmBindings{},
	}
}

// Init applies the saved theme, loads the first list and the goals, and
// starts background refresh.
func (m Model) Init() tea.Cmd {
	theme.Apply(string(m.state.Theme))
	cmds := []tea.Cmd{m.taskList.Init(), m.loadGoals()}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.toast = m.toast.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Width = msg.Width
		m.layout.Height = msg.Height
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.SyncResultMsg:
		cmd := tea.Batch(m.handleSync(msg), m.waitForSync())
		return m, cmd

	case appsync.AuthErrorMsg:
		m.state.Logout()
		m.authMessage = msg.Message
		m.logger.Warn("signed out", "reason", msg.Message)
		cmd := tea.Batch(m.toast.Show(toast.Toast{Kind: toast.Error, Text: "Session expired, run `miledo token set`"}), m.waitForSync())
		return m, cmd

	case loggedOutMsg:
		cmd := m.handleLoggedOut(msg)
		return m, cmd

	case goalsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("failed on loading goals", "error", msg.err)
		}
		if msg.goals != nil {
			m.setGoals(msg.goals)
		}
		return m, nil

	case taskLoadedMsg:
		if msg.err != nil {
			m.detail.SetLoading(false)
			cmd := m.toast.Show(toast.FromError("load task", msg.err))
			return m, cmd
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(detail.TaskLoadedMsg{Task: msg.task})
		return m, cmd

	case taskSavedMsg:
		cmd := m.handleTaskSaved(msg)
		return m, cmd

	case batchDoneMsg:
		cmd := m.handleBatchDone(msg)
		return m, cmd

	case refreshedMsg:
		cmd := m.handleRefreshed(msg)
		return m, cmd

	case statsMsg:
		if msg.err != nil {
			cmd := m.toast.Show(toast.FromError("load stats", msg.err))
			return m, cmd
		}
		cmd := m.toast.Show(toast.Info(fmt.Sprintf("Today: %d of %d done", msg.stats.Completed, msg.stats.TotalTasks)))
		return m, cmd

	case tasklist.SelectedTaskMsg:
		cmd := m.openTask(msg.TaskID)
		return m, cmd

	case tasklist.ToggleTaskMsg:
		cmd := m.toggleTask(msg.TaskID)
		return m, cmd

	case tasklist.DeleteTaskMsg:
		cmd := m.startConfirm(pendingAction{kind: confirmDeleteTask, ids: []int64{msg.TaskID}, label: msg.Title})
		return m, cmd

	case tasklist.ViewChangedMsg:
		cmd := m.persist(func() error { return m.state.SetListView(bg(), msg.View, msg.GoalID) })
		return m, cmd

	case tasklist.MenuRequestMsg:
		x := 4
		if m.layout.SidebarShown() {
			x += ui.SidebarWidth
		}
		y := m.layout.HeaderHeight + msg.Row
		kind := uistate.MenuTask
		if msg.TaskID == 0 {
			kind = uistate.MenuList
		} else {
			m.state.SelectTask(msg.TaskID)
		}
		m.state.OpenContextMenu(x, y, kind, msg.TaskID, msg.Title, m.layout.Width, m.layout.Height)
		m.menu.Open(m.state.Menu)
		return m, nil

	case menu.ChoiceMsg:
		m.state.CloseContextMenu()
		cmd := m.runMenuAction(msg)
		return m, cmd

	case menu.CloseMsg:
		m.state.CloseContextMenu()
		return m, nil

	case detail.UpdateRequestMsg:
		cmd := m.updateTask(msg.TaskID, msg.Patch, "update task")
		return m, cmd

	case detail.DeleteRequestMsg:
		cmd := m.startConfirm(pendingAction{kind: confirmDeleteTask, ids: []int64{msg.TaskID}, label: msg.Title})
		return m, cmd

	case detail.BackMsg:
		m.currentView = m.previousView
		if m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		cmd := m.reloadViews()
		return m, cmd

	case taskform.TaskCreatedMsg:
		m.currentView = m.previousView
		cmd := m.createTask(msg.Task)
		return m, cmd

	case taskform.TaskFormCancelMsg:
		m.currentView = m.previousView
		return m, nil

	case goalmgr.GoalListCloseMsg:
		m.currentView = ViewList
		return m, nil

	case goalmgr.GoalChangedMsg:
		cmd := tea.Batch(m.toast.Show(toast.Info(msg.Text)), m.loadGoals(), m.taskList.LoadTasks())
		return m, cmd

	case goalmgr.GoalSelectedMsg:
		m.currentView = ViewList
		cmd := m.taskList.SetView(uistate.ListGoal, msg.GoalID)
		return m, cmd

	case calview.ModeChangedMsg:
		cmd := m.persist(func() error { return m.state.SetCalendarView(bg(), msg.View) })
		return m, cmd

	case calview.OpenTaskMsg:
		cmd := m.openTask(msg.TaskID)
		return m, cmd

	case calview.NewTaskMsg:
		cmd := m.openTaskForm(msg.Date)
		return m, cmd

	case calview.ClearRequestMsg:
		cmd := m.startConfirm(pendingAction{kind: confirmClearCalendar, ids: msg.TaskIDs, label: msg.Label})
		return m, cmd

	case calview.CloseMsg:
		m.currentView = ViewList
		cmd := m.taskList.LoadTasks()
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if model, cmd, handled := m.handleGlobalKey(msg); handled {
			return model, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that switch views or act on the app.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		cmd := m.quit()
		return m, cmd, true
	}
	if m.state.Menu.Open {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd, true
	}
	if m.currentView == ViewHelp && (key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back)) {
		m.currentView = m.previousView
		return m, nil, true
	}

	browsing := (m.currentView == ViewList && !m.taskList.Searching()) || m.currentView == ViewCalendar
	if !browsing {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		cmd := m.quit()
		return m, cmd, true

	case key.Matches(msg, m.keys.Help):
		m.switchTo(ViewHelp)
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.switchTo(ViewCommand)
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Theme):
		cmd := m.toggleTheme()
		return m, cmd, true

	case key.Matches(msg, m.keys.Sidebar):
		cmd := m.persist(func() error { return m.state.ToggleSidebar(bg()) })
		m.layout.SidebarOpen = m.state.SidebarOpen
		m.resize()
		return m, cmd, true
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.New):
		cmd := m.openTaskForm("")
		return m, cmd, true

	case key.Matches(msg, m.keys.Goals):
		m.switchTo(ViewGoals)
		cmd := m.goalView.Init()
		return m, cmd, true

	case key.Matches(msg, m.keys.Calendar):
		m.switchTo(ViewCalendar)
		cmd := m.calendar.Reload()
		return m, cmd, true

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refresh()
		return m, cmd, true
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewGoals:
		m.goalView, cmd = m.goalView.Update(msg)
	case ViewCalendar:
		m.calendar, cmd = m.calendar.Update(msg)
	case ViewConfirm:
		return m.updateConfirm(msg)
	}

	// Loads for views in the background still have to land.
	switch msg.(type) {
	case tasklist.TasksLoadedMsg:
		if m.currentView != ViewList {
			m.taskList, _ = m.taskList.Update(msg)
		}
	case calview.PeriodLoadedMsg, calview.BacklogLoadedMsg:
		if m.currentView != ViewCalendar {
			m.calendar, _ = m.calendar.Update(msg)
		}
	}

	return m, cmd
}

func (m *Model) switchTo(v ViewState) {
	m.previousView = m.currentView
	m.currentView = v
}

func (m *Model) resize() {
	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight()
	m.taskList.SetSize(w, h)
	m.detail.SetSize(w, h)
	m.taskForm.SetSize(w, h)
	m.goalView.SetSize(w, h)
	m.calendar.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

func (m *Model) setGoals(goals []model.Goal) {
	m.goalList = goals
	m.taskList.SetGoals(goals)
	m.detail.SetGoals(goals)
	m.taskForm.SetGoals(goals)
}

// handleSync folds a background refresh into the views.
func (m *Model) handleSync(msg appsync.SyncResultMsg) tea.Cmd {
	if msg.Error == nil {
		m.authMessage = ""
	}
	switch msg.Feed {
	case appsync.FeedGoals:
		if msg.Goals != nil {
			m.setGoals(activeGoals(msg.Goals))
		}
		return nil
	default:
		return m.reloadViews()
	}
}

// reloadViews reloads the list and whichever task view is open.
func (m Model) reloadViews() tea.Cmd {
	cmds := []tea.Cmd{m.taskList.LoadTasks()}
	switch m.currentView {
	case ViewCalendar:
		cmds = append(cmds, m.calendar.Reload())
	case ViewDetail:
		if t, ok := m.detail.Task(); ok && !m.detail.Editing() {
			cmds = append(cmds, m.loadTask(t.ID))
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForSync() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return m.poller.WaitForNextResult()
}

func (m Model) refresh() tea.Cmd {
	if m.poller != nil {
		m.poller.RefreshAll()
		return nil
	}
	return tea.Batch(m.refreshTasks(), m.loadGoals())
}

func (m Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

// persist runs a state write and logs a failure. Preferences are best
// effort and never interrupt the UI.
func (m Model) persist(save func() error) tea.Cmd {
	if err := save(); err != nil {
		m.logger.Warn("failed on saving preference", "error", err)
	}
	return nil
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	body := m.layout.RenderBody(m.renderSidebar(), m.renderContent())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast.View())

	frame := m.layout.RenderWithFrame(header, body, statusBar)
	if m.state.Menu.Open {
		x, y := m.menu.Position()
		frame = ui.Overlay(frame, m.menu.View(), x, y)
	}
	return frame
}

func (m Model) headerTitle() string {
	title := "miledo"
	if m.state.Theme == uistate.ThemeDark {
		title += " ☾"
	}
	return title
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate:
		return m.taskForm.View()
	case ViewGoals:
		return m.goalView.View()
	case ViewCalendar:
		return m.calendar.View()
	case ViewConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

// renderSidebar lists the active goals, marking the one being shown.
func (m Model) renderSidebar() string {
	view, goalID := m.taskList.CurrentView()
	lines := []string{theme.SectionStyle.Render("Goals")}
	if len(m.goalList) == 0 {
		lines = append(lines, theme.HelpStyle.Render("none yet"))
	}
	for _, g := range m.goalList {
		label := theme.GoalStyle(g.Color).Render("●") + " " + g.Title
		if view == uistate.ListGoal && goalID == g.ID {
			label = theme.SelectedItemStyle.Render(label)
		}
		lines = append(lines, lipgloss.NewStyle().MaxWidth(ui.SidebarWidth-2).Render(label))
	}
	return strings.Join(lines, "\n")
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	if m.authMessage != "" {
		return "⚠ signed out"
	}
	if m.poller == nil {
		return ""
	}

	var last time.Time
	var failed []string
	for _, s := range m.poller.Statuses() {
		switch s.State {
		case appsync.SyncRunning:
			return "syncing…"
		case appsync.SyncError:
			failed = append(failed, string(s.Feed))
		}
		if s.LastSync.After(last) {
			last = s.LastSync
		}
	}

	if len(failed) > 0 {
		return "⚠ offline: " + strings.Join(failed, ", ")
	}
	if last.IsZero() {
		return ""
	}
	return "synced " + last.Format("15:04")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.authMessage != "" && m.currentView == ViewList {
		return m.authMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter run | tab complete | esc back"
	case ViewDetail:
		return "esc back | t/d/s/e edit | +/- duration | x done | D delete"
	case ViewTaskCreate:
		return "enter next | esc cancel"
	case ViewGoals:
		return "n new | e edit | a archive | d delete | esc back"
	case ViewCalendar:
		return "w week/month | enter open | n new | esc back"
	case ViewConfirm:
		return "←/→ choose | enter confirm | esc cancel"
	default:
		return "q quit | ? help | n new | / search | tab list | c calendar | g goals | m menu"
	}
}

// activeGoals drops archived goals.
func activeGoals(goals []model.Goal) []model.Goal {
	var out []model.Goal
	for _, g := range goals {
		if !g.IsArchived {
			out = append(out, g)
		}
	}
	return out
}
