// Package calview renders scheduled tasks on a week or month grid next to
// the backlog of unscheduled tasks.
package calview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/calendar"
	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/uistate"
)

// Source loads the tasks the calendar shows.
type Source interface {
	Period(ctx context.Context, after, before string) ([]model.Task, error)
	Inbox(ctx context.Context) ([]model.Task, error)
}

// PeriodLoadedMsg carries the tasks of the visible range.
type PeriodLoadedMsg struct {
	After  string
	Before string
	Tasks  []model.Task
	Err    error
}

// BacklogLoadedMsg carries the unscheduled tasks.
type BacklogLoadedMsg struct {
	Tasks []model.Task
	Err   error
}

// ModeChangedMsg reports a week/month switch so the parent can persist it.
type ModeChangedMsg struct {
	View uistate.CalendarView
}

// OpenTaskMsg asks the parent to open a task in the detail view.
type OpenTaskMsg struct {
	TaskID int64
}

// NewTaskMsg asks the parent to open the task form for a day.
type NewTaskMsg struct {
	Date string
}

// ClearRequestMsg asks the parent to unschedule every open task in range.
type ClearRequestMsg struct {
	TaskIDs []int64
	Label   string
}

// CloseMsg signals the parent to leave the calendar.
type CloseMsg struct{}

// Model is the calendar view component.
type Model struct {
	source  Source
	keys    *keys.KeyMap
	mode    uistate.CalendarView
	cursor  time.Time
	taskIdx int
	tasks   []model.Task
	backlog []model.Task
	after   string
	before  string
	stale   bool
	width   int
	height  int
}

// New creates a calendar positioned on today.
func New(src Source, k *keys.KeyMap, mode uistate.CalendarView, now time.Time, width, height int) Model {
	m := Model{
		source: src,
		keys:   k,
		mode:   mode,
		cursor: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		width:  width,
		height: height,
	}
	m.after, m.before = m.visibleRange()
	return m
}

// Init loads the visible range and the backlog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPeriod(), m.loadBacklog())
}

// Update handles messages for the calendar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PeriodLoadedMsg:
		if msg.After != m.after || msg.Before != m.before {
			return m, nil
		}
		m.tasks = msg.Tasks
		m.stale = msg.Err != nil
		m.clampTaskIdx()
		return m, nil

	case BacklogLoadedMsg:
		if msg.Err == nil || msg.Tasks != nil {
			m.backlog = nil
			for _, t := range msg.Tasks {
				if calendar.IsBacklog(t) {
					m.backlog = append(m.backlog, t)
				}
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case msg.String() == "left" || msg.String() == "h":
		return m.move(-1)
	case msg.String() == "right" || msg.String() == "l":
		return m.move(1)
	case msg.String() == "up" || msg.String() == "k":
		return m.move(-7)
	case msg.String() == "down" || msg.String() == "j":
		return m.move(7)
	case msg.String() == "[":
		return m.page(-1)
	case msg.String() == "]":
		return m.page(1)
	case msg.String() == ".":
		now := time.Now()
		return m.jump(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))

	case key.Matches(msg, m.keys.NextTab):
		if n := len(m.dayTasks()); n > 0 {
			m.taskIdx = (m.taskIdx + 1) % n
		}
		return m, nil

	case msg.String() == "w":
		next := uistate.CalendarWeek
		if m.mode == uistate.CalendarWeek {
			next = uistate.CalendarMonth
		}
		m.mode = next
		cmd := m.reload()
		return m, tea.Batch(cmd, func() tea.Msg { return ModeChangedMsg{View: next} })

	case key.Matches(msg, m.keys.Select):
		day := m.dayTasks()
		if m.taskIdx < len(day) {
			id := day[m.taskIdx].ID
			return m, func() tea.Msg { return OpenTaskMsg{TaskID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		date := m.cursor.Format(schedule.DateLayout)
		return m, func() tea.Msg { return NewTaskMsg{Date: date} }

	case msg.String() == "X":
		var ids []int64
		for _, t := range m.tasks {
			if !t.IsDone && schedule.ExtractDate(t.ScheduledDate) != "" {
				ids = append(ids, t.ID)
			}
		}
		if len(ids) == 0 {
			return m, nil
		}
		label := m.title()
		return m, func() tea.Msg { return ClearRequestMsg{TaskIDs: ids, Label: label} }

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Init()
	}
	return m, nil
}

func (m Model) move(days int) (Model, tea.Cmd) {
	return m.jump(m.cursor.AddDate(0, 0, days))
}

// page moves a whole week or month.
func (m Model) page(dir int) (Model, tea.Cmd) {
	if m.mode == uistate.CalendarWeek {
		return m.jump(m.cursor.AddDate(0, 0, 7*dir))
	}
	first := time.Date(m.cursor.Year(), m.cursor.Month(), 1, 0, 0, 0, 0, m.cursor.Location())
	return m.jump(first.AddDate(0, dir, 0))
}

func (m Model) jump(day time.Time) (Model, tea.Cmd) {
	m.cursor = day
	m.taskIdx = 0
	return m, m.reload()
}

// reload refetches when the visible range changed.
func (m *Model) reload() tea.Cmd {
	after, before := m.visibleRange()
	if after == m.after && before == m.before {
		return nil
	}
	m.after, m.before = after, before
	m.tasks = nil
	return m.loadPeriod()
}

// visibleRange returns the half-open [after, before) span of the grid.
func (m Model) visibleRange() (string, string) {
	var first, last time.Time
	if m.mode == uistate.CalendarWeek {
		days := calendar.WeekDays(m.cursor)
		first, last = days[0], days[6]
	} else {
		grid := calendar.MonthGrid(m.cursor)
		first, last = grid[0][0], grid[calendar.GridWeeks-1][6]
	}
	return first.Format(schedule.DateLayout), last.AddDate(0, 0, 1).Format(schedule.DateLayout)
}

func (m Model) loadPeriod() tea.Cmd {
	src := m.source
	after, before := m.after, m.before
	return func() tea.Msg {
		tasks, err := src.Period(context.Background(), after, before)
		return PeriodLoadedMsg{After: after, Before: before, Tasks: tasks, Err: err}
	}
}

func (m Model) loadBacklog() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		tasks, err := src.Inbox(context.Background())
		return BacklogLoadedMsg{Tasks: tasks, Err: err}
	}
}

func (m Model) dayTasks() []model.Task {
	return calendar.DueOn(m.tasks, m.cursor.Format(schedule.DateLayout))
}

func (m *Model) clampTaskIdx() {
	if n := len(m.dayTasks()); m.taskIdx >= n {
		m.taskIdx = max(n-1, 0)
	}
}

func (m Model) title() string {
	if m.mode == uistate.CalendarWeek {
		days := calendar.WeekDays(m.cursor)
		return fmt.Sprintf("Week of %s", days[0].Format("Jan 2, 2006"))
	}
	return m.cursor.Format("January 2006")
}

// View renders the grid, the selected day and the backlog.
func (m Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(m.title())
	if m.stale {
		header += lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("  ⚠ offline")
	}

	var grid string
	if m.mode == uistate.CalendarWeek {
		grid = m.renderWeek()
	} else {
		grid = m.renderMonth()
	}

	footer := theme.HelpStyle.Render("←/→ day • ↑/↓ week • [/] page • w week/month • . today • tab task • enter open • n new • X clear")

	return lipgloss.NewStyle().Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "", grid, "", m.renderDay(), "", m.renderBacklog(), "", footer,
	))
}

func (m Model) cellWidth() int {
	return max((m.width-4)/7, 6)
}

func (m Model) renderMonth() string {
	cw := m.cellWidth()
	groups := calendar.GroupByDate(m.tasks)
	today := time.Now().Format(schedule.DateLayout)
	cell := lipgloss.NewStyle().Width(cw).MaxWidth(cw)

	var rows []string
	var head []string
	for _, d := range calendar.WeekDays(m.cursor) {
		head = append(head, cell.Foreground(theme.ColorGray).Render(d.Format("Mon")))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, head...))

	for _, week := range calendar.MonthGrid(m.cursor) {
		var cells []string
		for _, d := range week {
			date := d.Format(schedule.DateLayout)
			label := fmt.Sprintf("%2d", d.Day())
			if n := len(groups[date]); n > 0 {
				label += fmt.Sprintf(" •%d", n)
			}
			cells = append(cells, m.styleDay(cell, d, date == today).Render(label))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderWeek() string {
	cw := m.cellWidth()
	groups := calendar.GroupByDate(m.tasks)
	today := time.Now().Format(schedule.DateLayout)
	cell := lipgloss.NewStyle().Width(cw).MaxWidth(cw)

	var cols []string
	for _, d := range calendar.WeekDays(m.cursor) {
		date := d.Format(schedule.DateLayout)
		lines := []string{m.styleDay(cell, d, date == today).Render(d.Format("Mon 2"))}
		for _, t := range groups[date] {
			line := schedule.ExtractTime(t.ScheduledTime) + " " + t.Title
			if !t.HasTime {
				line = t.Title
			}
			style := cell.Foreground(theme.ColorWhite)
			if t.IsDone {
				style = cell.Inherit(theme.DimmedStyle)
			}
			lines = append(lines, style.Render(line))
		}
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) styleDay(base lipgloss.Style, d time.Time, isToday bool) lipgloss.Style {
	switch {
	case sameDay(d, m.cursor):
		return base.Inherit(theme.SelectedItemStyle)
	case isToday:
		return base.Bold(true).Foreground(theme.ColorBlue)
	case m.mode == uistate.CalendarMonth && d.Month() != m.cursor.Month():
		return base.Foreground(theme.ColorSubtle)
	default:
		return base.Foreground(theme.ColorWhite)
	}
}

func (m Model) renderDay() string {
	title := theme.SectionStyle.Render(m.cursor.Format("Monday, Jan 2"))
	day := m.dayTasks()
	if len(day) == 0 {
		return title + "\n" + theme.HelpStyle.Render("Nothing scheduled.")
	}
	lines := []string{title}
	for i, t := range day {
		end := ""
		if t.HasTime {
			start := schedule.ExtractTime(t.ScheduledTime)
			if clock, err := schedule.AddMinutes(start, int(t.DurationMinutes)); err == nil {
				end = start + "–" + clock + " "
			}
		}
		line := end + t.Title
		if t.IsDone {
			line = theme.DimmedStyle.Render(line)
		}
		if i == m.taskIdx {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBacklog() string {
	title := theme.SectionStyle.Render(fmt.Sprintf("Backlog (%d)", len(m.backlog)))
	limit := 5
	lines := []string{title}
	for i, t := range m.backlog {
		if i == limit {
			lines = append(lines, theme.HelpStyle.Render(fmt.Sprintf("… %d more", len(m.backlog)-limit)))
			break
		}
		lines = append(lines, theme.ListItemStyle.Render("○ "+t.Title))
	}
	return strings.Join(lines, "\n")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Mode returns the active grid.
func (m Model) Mode() uistate.CalendarView {
	return m.mode
}

// Range returns the half-open date span currently shown.
func (m Model) Range() (string, string) {
	return m.after, m.before
}

// Reload refetches the visible range and the backlog.
func (m Model) Reload() tea.Cmd {
	return m.Init()
}

// SetSize updates the calendar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
