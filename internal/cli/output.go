package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/theme"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
}

// encode writes v as JSON or YAML. It reports false for the table format.
func encode(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err := enc.Encode(v)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
		return true, err
	}
	return false, nil
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(theme.DimmedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.SectionStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// taskRow is the serialized form of a task. Schedule fields are decoded
// from the backend format.
type taskRow struct {
	ID       int64  `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Done     bool   `json:"done" yaml:"done"`
	GoalID   int32  `json:"goal_id" yaml:"goal_id"`
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
	Start    string `json:"start,omitempty" yaml:"start,omitempty"`
	Duration int32  `json:"duration_minutes" yaml:"duration_minutes"`
}

func toTaskRow(t model.Task) taskRow {
	row := taskRow{
		ID:       t.ID,
		Title:    t.Title,
		Done:     t.IsDone,
		GoalID:   t.GoalID,
		Date:     schedule.ExtractDate(t.ScheduledDate),
		Duration: t.DurationMinutes,
	}
	if row.Date != "" && t.HasTime {
		row.Start = schedule.ExtractTime(t.ScheduledTime)
	}
	return row
}

func printTasks(w io.Writer, format string, tasks []model.Task) error {
	rows := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, toTaskRow(t))
	}
	if ok, err := encode(w, format, rows); ok {
		return err
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		done := " "
		if r.Done {
			done = "✓"
		}
		cells = append(cells, []string{
			strconv.FormatInt(r.ID, 10), done, r.Title, r.Date, r.Start,
			strconv.Itoa(int(r.Duration)) + "m",
		})
	}
	return renderTable(w, []string{"ID", "DONE", "TITLE", "DATE", "START", "DURATION"}, cells)
}

func printTask(w io.Writer, format string, t *model.Task) error {
	return printTasks(w, format, []model.Task{*t})
}

func printGoals(w io.Writer, format string, goals []model.Goal) error {
	if goals == nil {
		goals = []model.Goal{}
	}
	if ok, err := encode(w, format, goals); ok {
		return err
	}

	cells := make([][]string, 0, len(goals))
	for _, g := range goals {
		state := "active"
		if g.IsArchived {
			state = "archived"
		}
		cells = append(cells, []string{
			strconv.FormatInt(g.ID, 10),
			theme.GoalStyle(g.Color).Render("●") + " " + g.Title,
			g.CategoryType,
			state,
		})
	}
	return renderTable(w, []string{"ID", "TITLE", "CATEGORY", "STATE"}, cells)
}

func printGoal(w io.Writer, format string, g *model.Goal) error {
	return printGoals(w, format, []model.Goal{*g})
}
