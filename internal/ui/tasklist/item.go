package tasklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	return ScheduleLabel(i.Task)
}

// ScheduleLabel renders when a task happens, such as "May 1 09:00–09:45".
// Unscheduled tasks render as "".
func ScheduleLabel(t model.Task) string {
	day := schedule.FormatDisplayDate(t.ScheduledDate)
	if day == "" {
		return ""
	}
	if !t.HasTime {
		return day
	}
	start := schedule.ExtractTime(t.ScheduledTime)
	end := reconcile.EndClock(t)
	if start == "" || end == "" {
		return day
	}
	return fmt.Sprintf("%s %s–%s", day, start, end)
}

// ItemDelegate implements list.ItemDelegate for rendering tasks.
type ItemDelegate struct {
	// goals maps goal ids to goals for the goal badge. Shared by
	// reference with the tasklist Model so updates are visible.
	goals map[int32]model.Goal
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	task := ti.Task

	prefix := "○"
	if task.IsDone {
		prefix = "✓"
	}

	parts := []string{prefix, task.Title}

	if label := ScheduleLabel(task); label != "" {
		parts = append(parts, theme.ScheduleStyle.Render(label))
	}

	if g, ok := d.goals[task.GoalID]; ok && task.GoalID != 0 {
		parts = append(parts, theme.GoalStyle(g.Color).Render("#"+g.Title))
	}

	if task.RescheduleCount > 1 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorOrange).
			Render(fmt.Sprintf("↻%d", task.RescheduleCount)))
	}

	line := strings.Join(parts, " ")

	if task.IsDone {
		line = theme.DimmedStyle.Render(line)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
