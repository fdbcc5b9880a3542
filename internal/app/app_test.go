package app

import (
	"errors"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/service"
	appsync "github.com/nhle/miledo/internal/sync"
	"github.com/nhle/miledo/internal/ui/calview"
	"github.com/nhle/miledo/internal/ui/command"
	"github.com/nhle/miledo/internal/ui/tasklist"
	"github.com/nhle/miledo/internal/uistate"
	"github.com/nhle/miledo/tests/testutil"
)

type fakeSession struct {
	terminated bool
	err        error
}

func (s *fakeSession) Terminate() error {
	s.terminated = true
	return s.err
}

// exec runs cmd and gives up on commands that wait on timers or input.
func exec(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, msg != nil
	case <-time.After(500 * time.Millisecond):
		return nil, false
	}
}

// drain feeds the output of cmd back into m until nothing is left.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0 && i < 100; i++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := exec(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			continue
		}
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		queue = append(queue, nextCmd)
	}
	return m
}

func press(m Model, t *testing.T, s string) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return drain(t, next.(Model), cmd)
}

func newApp(t *testing.T, session Session) (Model, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddTask(testutil.UnscheduledTask(1, "Water plants"))
	fake.AddGoal(model.Goal{ID: 7, Title: "Health", Color: "#22c55e", CategoryType: model.CategoryGrowth})

	db := testutil.NewTestStore(t)
	m := New(Deps{
		Tasks:   service.NewTaskService(fake.Client(), db, 0, nil),
		Goals:   service.NewGoalService(fake.Client(), db, 0, nil),
		State:   uistate.New(nil),
		Session: session,
	})
	m = drain(t, m, m.Init())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model), fake
}

func toastText(m Model) string {
	tst, _ := m.toast.Current()
	return tst.Text
}

func TestToggleTaskFromList(t *testing.T) {
	m, fake := newApp(t, nil)
	require.Len(t, m.taskList.Tasks(), 1)

	m = press(m, t, "x")

	task, ok := fake.Task(1)
	require.True(t, ok)
	assert.True(t, task.IsDone)
	assert.Equal(t, "Task completed", toastText(m))
}

func TestFailedUpdateShowsToast(t *testing.T) {
	m, fake := newApp(t, nil)

	fake.FailWith(http.StatusInternalServerError)
	m = press(m, t, "x")

	assert.Equal(t, "Failed to update task", toastText(m))
	task, _ := fake.Task(1)
	assert.False(t, task.IsDone)
}

func TestDeleteAsksFirst(t *testing.T) {
	m, fake := newApp(t, nil)

	next, _ := m.Update(tasklist.DeleteTaskMsg{TaskID: 1, Title: "Water plants"})
	m = next.(Model)
	require.Equal(t, ViewConfirm, m.currentView)
	assert.Contains(t, m.pending.title(), "Water plants")

	cmd := m.resolveConfirm(true)
	m = drain(t, m, cmd)

	assert.Equal(t, ViewList, m.currentView)
	_, ok := fake.Task(1)
	assert.False(t, ok)
	assert.Equal(t, "Task deleted", toastText(m))
}

func TestDeclinedConfirmKeepsTask(t *testing.T) {
	m, fake := newApp(t, nil)

	next, _ := m.Update(tasklist.DeleteTaskMsg{TaskID: 1, Title: "Water plants"})
	m = next.(Model)
	assert.Nil(t, m.resolveConfirm(false))

	assert.Equal(t, ViewList, m.currentView)
	_, ok := fake.Task(1)
	assert.True(t, ok)
}

func TestClearCalendarUnschedules(t *testing.T) {
	m, fake := newApp(t, nil)
	fake.AddTask(testutil.ScheduledTask(2, "Standup", "2024-05-01", "09:00", 15))
	m = drain(t, m, m.refreshTasks())

	next, _ := m.Update(calview.ClearRequestMsg{TaskIDs: []int64{2}, Label: "Week of Apr 29, 2024"})
	m = next.(Model)
	require.Equal(t, confirmClearCalendar, m.pending.kind)

	m = drain(t, m, m.resolveConfirm(true))

	task, _ := fake.Task(2)
	assert.True(t, schedule.IsUnscheduled(task.ScheduledDate))
	assert.Equal(t, "Moved 1 tasks to inbox", toastText(m))
}

func TestAuthErrorSignsOut(t *testing.T) {
	m, _ := newApp(t, nil)
	m.state.Authenticated = true

	next, _ := m.Update(appsync.AuthErrorMsg{Message: "token expired"})
	m = next.(Model)

	assert.False(t, m.state.Authenticated)
	assert.Equal(t, "⚠ signed out", m.syncStatus())
	assert.Contains(t, m.View(), "signed out")
}

func TestLogoutTerminatesSession(t *testing.T) {
	session := &fakeSession{}
	m, _ := newApp(t, session)

	next, cmd := m.Update(command.CommandMsg("logout"))
	m = drain(t, next.(Model), cmd)

	assert.True(t, session.terminated)
	assert.Equal(t, signedOutHint, m.authMessage)
	assert.Equal(t, "Signed out", toastText(m))
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	session := &fakeSession{err: errors.New("keyring locked")}
	m, _ := newApp(t, session)
	m.state.Authenticated = true

	next, cmd := m.Update(command.CommandMsg("logout"))
	m = drain(t, next.(Model), cmd)

	assert.True(t, m.state.Authenticated)
	assert.Empty(t, m.authMessage)
	assert.Equal(t, "Failed to sign out", toastText(m))
}

func TestThemeToggle(t *testing.T) {
	m, _ := newApp(t, nil)
	require.Equal(t, uistate.ThemeLight, m.state.Theme)

	m = press(m, t, "T")
	assert.Equal(t, uistate.ThemeDark, m.state.Theme)
	assert.Equal(t, "Theme: dark", toastText(m))
}

func TestSidebarListsGoals(t *testing.T) {
	m, _ := newApp(t, nil)
	assert.Contains(t, m.View(), "Health")

	m = press(m, t, "b")
	assert.False(t, m.state.SidebarOpen)
	assert.False(t, m.layout.SidebarShown())
}

func TestContextMenuOpensAndCloses(t *testing.T) {
	m, _ := newApp(t, nil)

	m = press(m, t, "m")
	require.True(t, m.state.Menu.Open)
	assert.Equal(t, uistate.MenuTask, m.state.Menu.Kind)
	assert.Equal(t, int64(1), m.state.Menu.TargetID)
	assert.Contains(t, m.View(), "Toggle done")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = drain(t, next.(Model), cmd)
	assert.False(t, m.state.Menu.Open)
}

func TestMenuOpenShowsDetail(t *testing.T) {
	m, _ := newApp(t, nil)

	m = press(m, t, "m")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drain(t, next.(Model), cmd)

	assert.False(t, m.state.Menu.Open)
	assert.Equal(t, ViewDetail, m.currentView)
	task, ok := m.detail.Task()
	require.True(t, ok)
	assert.Equal(t, "Water plants", task.Title)
}

func TestStatsCommand(t *testing.T) {
	m, _ := newApp(t, nil)

	next, cmd := m.Update(command.CommandMsg("stats"))
	m = drain(t, next.(Model), cmd)
	assert.Equal(t, "Today: 0 of 1 done", toastText(m))
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newApp(t, nil)

	next, cmd := m.Update(command.CommandMsg("fly"))
	m = drain(t, next.(Model), cmd)
	assert.Equal(t, "Unknown command: fly", toastText(m))
}

func TestGoalSyncUpdatesSidebar(t *testing.T) {
	m, _ := newApp(t, nil)

	next, _ := m.Update(appsync.SyncResultMsg{Feed: appsync.FeedGoals, Goals: []model.Goal{
		{ID: 8, Title: "Career"},
		{ID: 9, Title: "Old", IsArchived: true},
	}})
	m = next.(Model)

	view := m.renderSidebar()
	assert.Contains(t, view, "Career")
	assert.NotContains(t, view, "Old")
	assert.NotContains(t, view, "Health")
}
