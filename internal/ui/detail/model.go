package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// TaskLoadedMsg carries a task fetched for the detail view.
type TaskLoadedMsg struct {
	Task *model.Task
	Err  error
}

// UpdateRequestMsg asks the parent to apply a partial edit.
type UpdateRequestMsg struct {
	TaskID int64
	Patch  reconcile.Patch
}

// DeleteRequestMsg asks the parent to confirm and delete the task.
type DeleteRequestMsg struct {
	TaskID int64
	Title  string
}

// field is the attribute being edited inline.
type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldDate
	fieldStart
	fieldEnd
)

func (f field) label() string {
	switch f {
	case fieldTitle:
		return "Title"
	case fieldDate:
		return "Date (YYYY-MM-DD)"
	case fieldStart:
		return "Start (HH:MM)"
	case fieldEnd:
		return "End (HH:MM)"
	default:
		return ""
	}
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	goals    []model.Goal
	viewport viewport.Model
	input    textinput.Model
	editing  field
	notice   string
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = width - 4

	return Model{
		viewport: vp,
		input:    ti,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TaskLoadedMsg:
		m.loading = false
		if msg.Err == nil && msg.Task != nil {
			m.SetTask(msg.Task)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing != fieldNone {
			return m.handleEditKeys(msg)
		}
		if cmd, handled := m.handleActionKeys(msg); handled {
			return m, cmd
		}
		if key.Matches(msg, m.keys.EditTitle, m.keys.EditDate, m.keys.EditStart, m.keys.EditEnd) {
			return m.startEdit(msg)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleActionKeys turns single-key edits into update requests.
func (m *Model) handleActionKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Back) {
		return func() tea.Msg { return BackMsg{} }, true
	}
	if m.task == nil {
		return nil, false
	}
	task := *m.task
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Toggle):
		done := !task.IsDone
		return m.request(reconcile.Patch{IsDone: &done}), true

	case key.Matches(msg, m.keys.DurationUp), key.Matches(msg, m.keys.DurationDown):
		step := 1
		if key.Matches(msg, m.keys.DurationDown) {
			step = -1
		}
		next := int32(schedule.NudgeDuration(int(task.DurationMinutes), step))
		if next == task.DurationMinutes {
			return nil, true
		}
		return m.request(reconcile.Patch{DurationMinutes: &next}), true

	case key.Matches(msg, m.keys.Unschedule):
		if schedule.IsUnscheduled(task.ScheduledDate) {
			m.notice = "Task is not scheduled"
			m.refresh()
			return nil, true
		}
		none := ""
		return m.request(reconcile.Patch{ScheduledDateTime: &none}), true

	case key.Matches(msg, m.keys.CycleGoal):
		next := m.nextGoal(task.GoalID)
		if next == task.GoalID {
			return nil, true
		}
		return m.request(reconcile.Patch{GoalID: &next}), true

	case key.Matches(msg, m.keys.Delete):
		return func() tea.Msg {
			return DeleteRequestMsg{TaskID: task.ID, Title: task.Title}
		}, true
	}
	return nil, false
}

func (m Model) request(p reconcile.Patch) tea.Cmd {
	id := m.task.ID
	return func() tea.Msg {
		return UpdateRequestMsg{TaskID: id, Patch: p}
	}
}

// startEdit opens the inline input prefilled with the current value.
func (m Model) startEdit(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.task == nil {
		return m, nil
	}
	task := *m.task
	date := schedule.ExtractDate(task.ScheduledDate)

	var f field
	var value string
	switch {
	case key.Matches(msg, m.keys.EditTitle):
		f, value = fieldTitle, task.Title
	case key.Matches(msg, m.keys.EditDate):
		f, value = fieldDate, date
	case key.Matches(msg, m.keys.EditStart):
		f, value = fieldStart, startClock(task)
	case key.Matches(msg, m.keys.EditEnd):
		f, value = fieldEnd, reconcile.EndClock(task)
	}

	if (f == fieldStart || f == fieldEnd) && date == "" {
		m.notice = "Set a date first"
		m.refresh()
		return m, nil
	}

	m.editing = f
	m.notice = ""
	m.input.Prompt = f.label() + ": "
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.refresh()
	return m, m.input.Focus()
}

// handleEditKeys processes input while an inline edit is open.
func (m Model) handleEditKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeEdit()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		f := m.editing
		m.closeEdit()
		// A refresh may have unscheduled the task while the edit was open.
		if (f == fieldStart || f == fieldEnd) && schedule.IsUnscheduled(m.task.ScheduledDate) {
			m.notice = "Task is not scheduled"
			m.refresh()
			return m, nil
		}
		patch, ok := m.patchFor(f, value)
		if !ok {
			return m, nil
		}
		return m, m.request(patch)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refresh()
	return m, cmd
}

func (m *Model) closeEdit() {
	m.editing = fieldNone
	m.input.Blur()
	m.input.Reset()
	m.refresh()
}

// patchFor builds the edit for a submitted inline value. Unchanged
// values produce no request.
func (m Model) patchFor(f field, value string) (reconcile.Patch, bool) {
	task := *m.task
	date := schedule.ExtractDate(task.ScheduledDate)

	switch f {
	case fieldTitle:
		if value == task.Title {
			return reconcile.Patch{}, false
		}
		return reconcile.Patch{Title: &value}, true

	case fieldDate:
		if value == date {
			return reconcile.Patch{}, false
		}
		// An empty date clears the schedule.
		scheduled := ""
		if value != "" {
			scheduled, _ = schedule.Combine(value, startClock(task))
		}
		return reconcile.Patch{ScheduledDateTime: &scheduled}, true

	case fieldStart:
		if date == "" || value == "" || value == startClock(task) {
			return reconcile.Patch{}, false
		}
		scheduled, _ := schedule.Combine(date, value)
		return reconcile.Patch{ScheduledDateTime: &scheduled}, true

	case fieldEnd:
		if value == "" || value == reconcile.EndClock(task) {
			return reconcile.Patch{}, false
		}
		return reconcile.Patch{EndTime: &value}, true
	}
	return reconcile.Patch{}, false
}

// nextGoal returns the goal after current among active goals, wrapping
// through "no goal".
func (m Model) nextGoal(current int32) int32 {
	ids := []int32{0}
	for _, g := range m.goals {
		if !g.IsArchived {
			ids = append(ids, int32(g.ID))
		}
	}
	for i, id := range ids {
		if id == current {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		loadingStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return loadingStyle.Render("Loading task...")
	}

	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := task.Title
	if task.IsDone {
		title = "✓ " + title
	}
	sections = append(sections, titleStyle.Render(title))

	status := "Open"
	if task.IsDone {
		status = "Done"
	}
	badges := []string{theme.SectionStyle.Render(status)}
	if g, ok := m.goal(task.GoalID); ok {
		badges = append(badges, theme.GoalStyle(g.Color).Render("#"+g.Title))
	}
	sections = append(sections, strings.Join(badges, "  "))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%-10s %s", metaStyle.Render(label), valStyle.Render(value)))
	}

	date := schedule.ExtractDate(task.ScheduledDate)
	if date == "" {
		row("Date:", "unscheduled")
	} else {
		row("Date:", date)
		row("Start:", startClock(*task))
		row("End:", reconcile.EndClock(*task))
	}
	row("Duration:", fmt.Sprintf("%d min", task.DurationMinutes))
	if task.RescheduleCount > 0 {
		row("Moved:", fmt.Sprintf("%d times", task.RescheduleCount))
	}
	if created := schedule.ExtractDate(task.CreatedAt); created != "" {
		row("Created:", created)
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	switch {
	case m.editing != fieldNone:
		sections = append(sections, m.input.View())
		sections = append(sections, theme.HelpStyle.Render("enter save • esc cancel"))
	case m.notice != "":
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(m.notice))
	default:
		sections = append(sections, theme.HelpStyle.Render(
			"t title • d date • s start • e end • +/- duration • u unschedule • G goal • x done • D delete",
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) goal(id int32) (model.Goal, bool) {
	if id == 0 {
		return model.Goal{}, false
	}
	for _, g := range m.goals {
		if int32(g.ID) == id {
			return g, true
		}
	}
	return model.Goal{}, false
}

// startClock returns the task's HH:MM start, or "" without an explicit time.
func startClock(t model.Task) string {
	if !t.HasTime {
		return ""
	}
	return schedule.ExtractTime(t.ScheduledTime)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// SetTask updates the task being displayed and re-renders the content.
func (m *Model) SetTask(task *model.Task) {
	sameTask := m.task != nil && task != nil && m.task.ID == task.ID
	m.task = task
	m.loading = false
	if !sameTask {
		m.editing = fieldNone
		m.notice = ""
		m.viewport.GotoTop()
	}
	m.refresh()
}

// Task returns the displayed task.
func (m Model) Task() (*model.Task, bool) {
	return m.task, m.task != nil
}

// Editing reports whether an inline edit is open.
func (m Model) Editing() bool {
	return m.editing != fieldNone
}

// SetGoals updates the goals used for the badge and goal cycling.
func (m *Model) SetGoals(goals []model.Goal) {
	m.goals = goals
	m.refresh()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.input.Width = width - 4
	m.refresh()
}
