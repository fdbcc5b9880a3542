package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/service"
	"github.com/nhle/miledo/internal/theme"
)

// TaskCreatedMsg is dispatched when the form is submitted.
type TaskCreatedMsg struct {
	Task service.NewTask
}

// TaskFormCancelMsg is dispatched when the user cancels the form.
type TaskFormCancelMsg struct{}

// durationChoices are the durations offered in the form, in minutes.
var durationChoices = []int32{15, 30, 45, 60, 90, 120}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	goalID   int32
	date     string
	start    string
	duration int32
}

// Model is the Bubble Tea model for the new task form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	goals  []model.Goal
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{duration: schedule.MinDuration * 2},
		width:  width,
		height: height,
	}
}

// SetGoals sets the goals offered by the goal selector.
func (m *Model) SetGoals(goals []model.Goal) {
	m.goals = goals
}

// StartCreate resets the form. date (YYYY-MM-DD) and goalID prefill the
// matching fields and may be empty or zero.
func (m *Model) StartCreate(date string, goalID int32) tea.Cmd {
	m.fb.title = ""
	m.fb.goalID = goalID
	m.fb.date = date
	m.fb.start = ""
	m.fb.duration = schedule.MinDuration * 2
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return TaskFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Task") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			CharLimit(256).
			Value(&m.fb.title).
			Validate(validateTitle),
		m.goalField(),
		huh.NewInput().
			Title("Date").
			Placeholder("YYYY-MM-DD (empty keeps it in the inbox)").
			Value(&m.fb.date).
			Validate(validateOptionalDate),
		huh.NewInput().
			Title("Start").
			Placeholder("HH:MM (defaults to " + schedule.DefaultTime + ")").
			Value(&m.fb.start).
			Validate(validateOptionalTime),
		m.durationField(),
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) goalField() huh.Field {
	opts := []huh.Option[int32]{
		huh.NewOption("None (Inbox)", int32(0)),
	}
	for _, g := range m.goals {
		if !g.IsArchived {
			opts = append(opts, huh.NewOption(g.Title, int32(g.ID)))
		}
	}
	return huh.NewSelect[int32]().
		Title("Goal").
		Options(opts...).
		Value(&m.fb.goalID)
}

func (m *Model) durationField() huh.Field {
	opts := make([]huh.Option[int32], len(durationChoices))
	for i, d := range durationChoices {
		opts[i] = huh.NewOption(fmt.Sprintf("%d min", d), d)
	}
	return huh.NewSelect[int32]().
		Title("Duration").
		Options(opts...).
		Value(&m.fb.duration)
}

func (m Model) handleSubmit() tea.Cmd {
	task := service.NewTask{
		Title:           strings.TrimSpace(m.fb.title),
		GoalID:          m.fb.goalID,
		Date:            strings.TrimSpace(m.fb.date),
		Time:            strings.TrimSpace(m.fb.start),
		DurationMinutes: m.fb.duration,
	}
	return func() tea.Msg { return TaskCreatedMsg{Task: task} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateTitle(s string) error {
	if len([]rune(strings.TrimSpace(s))) < reconcile.MinTitleLength {
		return fmt.Errorf("title must be at least %d characters", reconcile.MinTitleLength)
	}
	return nil
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(schedule.DateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

func validateOptionalTime(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(schedule.TimeLayout, s); err != nil {
		return fmt.Errorf("invalid time format, use HH:MM")
	}
	return nil
}
