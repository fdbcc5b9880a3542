// Package calendar lays scheduled tasks out on week and month grids.
package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

// GridWeeks is the number of rows in a month grid.
const GridWeeks = 6

// StartOfWeek returns the Monday on or before t, at midnight.
func StartOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekDays returns the seven days of anchor's week, Monday first.
func WeekDays(anchor time.Time) [7]time.Time {
	var days [7]time.Time
	start := StartOfWeek(anchor)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthGrid returns six weeks of days covering anchor's month. The first
// row starts on the Monday on or before the first of the month.
func MonthGrid(anchor time.Time) [GridWeeks][7]time.Time {
	var grid [GridWeeks][7]time.Time
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	start := StartOfWeek(first)
	for w := range grid {
		for d := range grid[w] {
			grid[w][d] = start.AddDate(0, 0, w*7+d)
		}
	}
	return grid
}

// GroupByDate buckets scheduled tasks by their YYYY-MM-DD day. Each bucket
// is ordered by start time. Unscheduled tasks are left out.
func GroupByDate(tasks []model.Task) map[string][]model.Task {
	groups := make(map[string][]model.Task)
	for _, t := range tasks {
		day := schedule.ExtractDate(t.ScheduledDate)
		if day == "" {
			continue
		}
		groups[day] = append(groups[day], t)
	}
	for _, bucket := range groups {
		sortByStart(bucket)
	}
	return groups
}

// DueOn returns the tasks scheduled on date (YYYY-MM-DD), ordered by start.
func DueOn(tasks []model.Task, date string) []model.Task {
	var due []model.Task
	for _, t := range tasks {
		if schedule.ExtractDate(t.ScheduledDate) == date {
			due = append(due, t)
		}
	}
	sortByStart(due)
	return due
}

// IsBacklog reports whether a task is open and has no schedule.
func IsBacklog(t model.Task) bool {
	return !t.IsDone && schedule.IsUnscheduled(t.ScheduledDate)
}

// Sections splits a task list the way the "all tasks" view shows it.
type Sections struct {
	Scheduled []model.Task
	Backlog   []model.Task
	Completed []model.Task
}

// Partition filters tasks by a case-insensitive title query and sorts
// them into sections. Done tasks always land in Completed.
func Partition(tasks []model.Task, query string) Sections {
	query = strings.ToLower(strings.TrimSpace(query))

	var s Sections
	for _, t := range tasks {
		if query != "" && !strings.Contains(strings.ToLower(t.Title), query) {
			continue
		}
		switch {
		case t.IsDone:
			s.Completed = append(s.Completed, t)
		case IsBacklog(t):
			s.Backlog = append(s.Backlog, t)
		default:
			s.Scheduled = append(s.Scheduled, t)
		}
	}
	sortByStart(s.Scheduled)
	return s
}

// sortByStart orders tasks by day then start time, unscheduled last.
func sortByStart(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return startKey(tasks[i]) < startKey(tasks[j])
	})
}

func startKey(t model.Task) string {
	day := schedule.ExtractDate(t.ScheduledDate)
	if day == "" {
		return "~"
	}
	clock := schedule.ExtractTime(t.ScheduledTime)
	if !t.HasTime || clock == "" {
		clock = "99:99"
	}
	return day + " " + clock
}
