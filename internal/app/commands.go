package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/service"
	"github.com/nhle/miledo/internal/ui/menu"
	"github.com/nhle/miledo/internal/ui/toast"
	"github.com/nhle/miledo/internal/uistate"
)

// goalsLoadedMsg carries the active goals for the sidebar and forms.
type goalsLoadedMsg struct {
	goals []model.Goal
	err   error
}

// taskLoadedMsg carries a task fetched for the detail view.
type taskLoadedMsg struct {
	task *model.Task
	err  error
}

// taskSavedMsg is sent after a single task mutation finished.
type taskSavedMsg struct {
	action string
	text   string
	task   *model.Task
	err    error
}

// batchDoneMsg is sent after a bulk delete or unschedule.
type batchDoneMsg struct {
	action string
	text   string
	n      int
	err    error
}

// statsMsg carries today's completion summary.
type statsMsg struct {
	stats *model.TaskStats
	err   error
}

// refreshedMsg is sent after a forced refetch without a poller.
type refreshedMsg struct {
	err error
}

func bg() context.Context {
	return context.Background()
}

func (m Model) loadGoals() tea.Cmd {
	goals := m.goals
	return func() tea.Msg {
		list, err := goals.List(bg(), false)
		return goalsLoadedMsg{goals: list, err: err}
	}
}

func (m Model) loadTask(id int64) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		task, err := tasks.Get(bg(), id)
		return taskLoadedMsg{task: task, err: err}
	}
}

// openTask shows the detail view and fetches the task.
func (m *Model) openTask(id int64) tea.Cmd {
	if m.currentView != ViewDetail {
		m.switchTo(ViewDetail)
	}
	m.state.SelectTask(id)
	m.detail.SetLoading(true)
	return m.loadTask(id)
}

// openTaskForm shows the create form. The goal of the goal tab is
// preselected.
func (m *Model) openTaskForm(date string) tea.Cmd {
	var goalID int32
	if view, id := m.taskList.CurrentView(); view == uistate.ListGoal {
		goalID = int32(id)
	}
	m.switchTo(ViewTaskCreate)
	m.taskForm.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
	return m.taskForm.StartCreate(date, goalID)
}

func (m Model) updateTask(id int64, patch reconcile.Patch, action string) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		task, err := tasks.Update(bg(), id, patch)
		return taskSavedMsg{action: action, text: "Task updated", task: task, err: err}
	}
}

func (m Model) toggleTask(id int64) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		task, err := tasks.Toggle(bg(), id)
		text := "Task reopened"
		if task != nil && task.IsDone {
			text = "Task completed"
		}
		return taskSavedMsg{action: "update task", text: text, task: task, err: err}
	}
}

func (m Model) unscheduleTask(id int64) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		task, err := tasks.Unschedule(bg(), id)
		return taskSavedMsg{action: "unschedule task", text: "Task moved to inbox", task: task, err: err}
	}
}

func (m Model) createTask(in service.NewTask) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		task, err := tasks.Create(bg(), in)
		return taskSavedMsg{action: "create task", text: "Task created", task: task, err: err}
	}
}

// deleteTasks removes one task, or several in one batch.
func (m Model) deleteTasks(ids []int64) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		if len(ids) == 1 {
			err := tasks.Delete(bg(), ids[0])
			return taskSavedMsg{action: "delete task", text: "Task deleted", err: err}
		}
		n, err := tasks.DeleteMany(bg(), ids)
		return batchDoneMsg{action: "delete tasks", text: fmt.Sprintf("Deleted %d tasks", n), n: n, err: err}
	}
}

func (m Model) unscheduleTasks(ids []int64) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		n, err := tasks.UnscheduleMany(bg(), ids)
		return batchDoneMsg{action: "clear calendar", text: fmt.Sprintf("Moved %d tasks to inbox", n), n: n, err: err}
	}
}

func (m Model) loadStats() tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		stats, err := tasks.Stats(bg())
		return statsMsg{stats: stats, err: err}
	}
}

func (m Model) refreshTasks() tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		_, err := tasks.Refresh(bg())
		return refreshedMsg{err: err}
	}
}

// handleTaskSaved shows the outcome and reloads what is on screen. Failed
// writes reload too so optimistic rows disappear.
func (m *Model) handleTaskSaved(msg taskSavedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("failed on "+msg.action, "error", msg.err)
		return tea.Batch(m.toast.Show(toast.FromError(msg.action, msg.err)), m.reloadViews())
	}

	if msg.task != nil {
		if t, ok := m.detail.Task(); ok && t.ID == msg.task.ID {
			m.detail.SetTask(msg.task)
		}
	}
	if msg.action == "delete task" && m.currentView == ViewDetail {
		m.currentView = ViewList
	}
	return tea.Batch(m.toast.Show(toast.Info(msg.text)), m.reloadViews())
}

func (m *Model) handleBatchDone(msg batchDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("failed on "+msg.action, "error", msg.err, "done", msg.n)
		return tea.Batch(m.toast.Show(toast.FromError(msg.action, msg.err)), m.reloadViews())
	}
	return tea.Batch(m.toast.Show(toast.Info(msg.text)), m.reloadViews())
}

func (m *Model) handleRefreshed(msg refreshedMsg) tea.Cmd {
	if msg.err != nil {
		return tea.Batch(m.toast.Show(toast.FromError("refresh", msg.err)), m.reloadViews())
	}
	return m.reloadViews()
}

// clearDone asks to delete the completed tasks of the shown list.
func (m *Model) clearDone() tea.Cmd {
	var ids []int64
	for _, t := range m.taskList.Tasks() {
		if t.IsDone {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return m.toast.Show(toast.Info("No completed tasks"))
	}
	return m.startConfirm(pendingAction{
		kind:  confirmClearDone,
		ids:   ids,
		label: fmt.Sprintf("%d completed tasks", len(ids)),
	})
}

// runMenuAction performs the context menu choice.
func (m *Model) runMenuAction(msg menu.ChoiceMsg) tea.Cmd {
	switch msg.Action {
	case menu.ActionOpen:
		return m.openTask(msg.TargetID)
	case menu.ActionToggle:
		return m.toggleTask(msg.TargetID)
	case menu.ActionUnschedule:
		return m.unscheduleTask(msg.TargetID)
	case menu.ActionDelete:
		title := m.state.Menu.Label
		for _, t := range m.taskList.Tasks() {
			if t.ID == msg.TargetID {
				title = t.Title
			}
		}
		return m.startConfirm(pendingAction{kind: confirmDeleteTask, ids: []int64{msg.TargetID}, label: title})
	case menu.ActionNewTask:
		return m.openTaskForm("")
	case menu.ActionClearDone:
		return m.clearDone()
	case menu.ActionRefresh:
		return m.refresh()
	}
	return nil
}

// executeCommand runs a command palette entry.
func (m *Model) executeCommand(name string) tea.Cmd {
	switch name {
	case "inbox":
		m.currentView = ViewList
		return m.taskList.SetView(uistate.ListInbox, 0)
	case "today":
		m.currentView = ViewList
		return m.taskList.SetView(uistate.ListToday, 0)
	case "all":
		m.currentView = ViewList
		return m.taskList.SetView(uistate.ListAll, 0)
	case "calendar":
		m.switchTo(ViewCalendar)
		return m.calendar.Reload()
	case "week", "month":
		mode := uistate.CalendarView(name)
		m.switchTo(ViewCalendar)
		if m.calendar.Mode() != mode {
			// The calendar owns the toggle; send it the key it listens to.
			var cmd tea.Cmd
			m.calendar, cmd = m.calendar.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("w")})
			return cmd
		}
		return m.calendar.Reload()
	case "goals":
		m.switchTo(ViewGoals)
		return m.goalView.Init()
	case "new":
		return m.openTaskForm("")
	case "refresh":
		return m.refresh()
	case "clear-done":
		return m.clearDone()
	case "stats":
		return m.loadStats()
	case "theme":
		return m.toggleTheme()
	case "sidebar":
		cmd := m.persist(func() error { return m.state.ToggleSidebar(bg()) })
		m.layout.SidebarOpen = m.state.SidebarOpen
		m.resize()
		return cmd
	case "logout":
		return m.logout()
	case "quit", "q":
		return m.quit()
	default:
		return m.toast.Show(toast.Toast{Kind: toast.Error, Text: "Unknown command: " + name})
	}
}
