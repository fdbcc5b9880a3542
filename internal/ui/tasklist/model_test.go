package tasklist

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/uistate"
	"github.com/nhle/miledo/tests/testutil"
)

type stubSource struct {
	inbox  []model.Task
	all    []model.Task
	goal   []model.Task
	err    error
	today  time.Time
	goalID int64
}

func (s *stubSource) Inbox(context.Context) ([]model.Task, error) { return s.inbox, s.err }
func (s *stubSource) All(context.Context) ([]model.Task, error)   { return s.all, s.err }

func (s *stubSource) Today(_ context.Context, now time.Time) ([]model.Task, error) {
	s.today = now
	return nil, s.err
}

func (s *stubSource) ByGoal(_ context.Context, goalID int64) ([]model.Task, error) {
	s.goalID = goalID
	return s.goal, s.err
}

func newList(src Source) Model {
	m := New(src, keys.DefaultKeyMap(), 80, 20)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return m
}

func titles(m Model) []string {
	var out []string
	for _, it := range m.list.Items() {
		out = append(out, it.(TaskItem).Task.Title)
	}
	return out
}

func TestLoadTasksUsesCurrentView(t *testing.T) {
	src := &stubSource{inbox: []model.Task{testutil.UnscheduledTask(1, "Write notes")}}
	m := newList(src)

	msg := m.LoadTasks()()
	loaded, ok := msg.(TasksLoadedMsg)
	require.True(t, ok)
	assert.Equal(t, uistate.ListInbox, loaded.View)
	assert.Len(t, loaded.Tasks, 1)

	m, _ = m.Update(loaded)
	assert.Equal(t, []string{"Write notes"}, titles(m))
}

func TestTodayPassesClock(t *testing.T) {
	src := &stubSource{}
	m := newList(src)
	m.view = uistate.ListToday

	m.LoadTasks()()
	assert.Equal(t, 2024, src.today.Year())
	assert.Equal(t, time.May, src.today.Month())
}

func TestStaleLoadIsIgnored(t *testing.T) {
	m := newList(&stubSource{})
	m.view = uistate.ListToday

	m, _ = m.Update(TasksLoadedMsg{
		View:  uistate.ListInbox,
		Tasks: []model.Task{testutil.UnscheduledTask(1, "Old tab")},
	})
	assert.Empty(t, m.list.Items())
}

func TestFailedLoadKeepsCachedRows(t *testing.T) {
	m := newList(&stubSource{})
	m, _ = m.Update(TasksLoadedMsg{
		View:  uistate.ListInbox,
		Tasks: []model.Task{testutil.UnscheduledTask(1, "Cached row")},
		Err:   errors.New("offline"),
	})

	assert.Equal(t, []string{"Cached row"}, titles(m))
	assert.Contains(t, m.View(), "offline")
}

func TestAllTabOrdersBySection(t *testing.T) {
	done := testutil.ScheduledTask(3, "Finished", "2024-05-01", "07:00", 30)
	done.IsDone = true
	tasks := []model.Task{
		testutil.UnscheduledTask(1, "Someday"),
		done,
		testutil.ScheduledTask(2, "Standup", "2024-05-01", "09:00", 15),
	}

	m := newList(&stubSource{})
	m.view = uistate.ListAll
	m, _ = m.Update(TasksLoadedMsg{View: uistate.ListAll, Tasks: tasks})

	assert.Equal(t, []string{"Standup", "Someday", "Finished"}, titles(m))
}

func TestSearchFiltersTitles(t *testing.T) {
	m := newList(&stubSource{})
	m, _ = m.Update(TasksLoadedMsg{View: uistate.ListInbox, Tasks: []model.Task{
		testutil.UnscheduledTask(1, "Write report"),
		testutil.UnscheduledTask(2, "Call plumber"),
	}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.searchMode)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("REP")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.searchMode)
	assert.Equal(t, []string{"Write report"}, titles(m))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, titles(m), 2)
}

func TestKeysEmitTaskMessages(t *testing.T) {
	m := newList(&stubSource{})
	m, _ = m.Update(TasksLoadedMsg{View: uistate.ListInbox, Tasks: []model.Task{
		testutil.UnscheduledTask(7, "Water plants"),
	}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedTaskMsg{TaskID: 7}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	assert.Equal(t, ToggleTaskMsg{TaskID: 7}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	require.NotNil(t, cmd)
	assert.Equal(t, DeleteTaskMsg{TaskID: 7, Title: "Water plants"}, cmd())
}

func TestTabCycleSkipsGoalWithoutSelection(t *testing.T) {
	m := newList(&stubSource{})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	view, _ := m.CurrentView()
	assert.Equal(t, uistate.ListToday, view)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	view, _ = m.CurrentView()
	assert.Equal(t, uistate.ListAll, view)
}

func TestGoalViewLoadsGoalTasks(t *testing.T) {
	src := &stubSource{goal: []model.Task{testutil.UnscheduledTask(4, "Run 5k")}}
	m := newList(src)
	m.SetGoals([]model.Goal{{ID: 12, Title: "Health", Color: "#22aa55"}})

	m.SetView(uistate.ListGoal, 12)
	view, goalID := m.CurrentView()
	assert.Equal(t, uistate.ListGoal, view)
	assert.Equal(t, int64(12), goalID)
	assert.Contains(t, m.View(), "Health")

	msg := m.LoadTasks()().(TasksLoadedMsg)
	assert.Equal(t, int64(12), src.goalID)
	assert.Equal(t, int64(12), msg.GoalID)
}

func TestGoalViewWithoutGoalFallsBackToInbox(t *testing.T) {
	m := newList(&stubSource{})
	m.SetView(uistate.ListGoal, 0)
	view, _ := m.CurrentView()
	assert.Equal(t, uistate.ListInbox, view)
}

func TestScheduleLabel(t *testing.T) {
	task := testutil.ScheduledTask(1, "Standup", "2024-05-01", "09:00", 45)
	assert.Equal(t, "May 1 09:00–09:45", ScheduleLabel(task))
	assert.Empty(t, ScheduleLabel(testutil.UnscheduledTask(2, "Later")))
}
