package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/tests/testutil"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newDetail(task model.Task) Model {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetTask(&task)
	return m
}

func requestFrom(t *testing.T, cmd tea.Cmd) UpdateRequestMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(UpdateRequestMsg)
	require.True(t, ok, "expected UpdateRequestMsg")
	return msg
}

func TestDurationNudge(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "09:00", 30))

	_, cmd := m.Update(runes("+"))
	req := requestFrom(t, cmd)
	assert.Equal(t, int64(5), req.TaskID)
	require.NotNil(t, req.Patch.DurationMinutes)
	assert.Equal(t, int32(45), *req.Patch.DurationMinutes)

	_, cmd = m.Update(runes("-"))
	req = requestFrom(t, cmd)
	assert.Equal(t, int32(15), *req.Patch.DurationMinutes)
}

func TestDurationFloorSendsNothing(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "09:00", 15))
	_, cmd := m.Update(runes("-"))
	assert.Nil(t, cmd)
}

func TestToggleAndUnschedule(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "09:00", 30))

	_, cmd := m.Update(runes("x"))
	req := requestFrom(t, cmd)
	require.NotNil(t, req.Patch.IsDone)
	assert.True(t, *req.Patch.IsDone)

	_, cmd = m.Update(runes("u"))
	req = requestFrom(t, cmd)
	require.NotNil(t, req.Patch.ScheduledDateTime)
	assert.Empty(t, *req.Patch.ScheduledDateTime)
}

func TestUnscheduleInboxTaskShowsNotice(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Someday"))
	m, cmd := m.Update(runes("u"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "not scheduled")
}

func TestEditTitle(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Draft"))

	m, _ = m.Update(runes("t"))
	require.True(t, m.Editing())
	m, _ = m.Update(runes(" v2"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.Editing())
	req := requestFrom(t, cmd)
	require.NotNil(t, req.Patch.Title)
	assert.Equal(t, "Draft v2", *req.Patch.Title)
	assert.Nil(t, req.Patch.ScheduledDateTime)
}

func TestEditDateKeepsStartTime(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "14:30", 30))

	m, _ = m.Update(runes("d"))
	m.input.SetValue("2024-05-03")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	req := requestFrom(t, cmd)
	require.NotNil(t, req.Patch.ScheduledDateTime)
	assert.Equal(t, "2024-05-03 14:30:00", *req.Patch.ScheduledDateTime)
}

func TestEditDateOnInboxTaskDefaultsStart(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Someday"))

	m, _ = m.Update(runes("d"))
	m.input.SetValue("2024-05-03")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	req := requestFrom(t, cmd)
	assert.Equal(t, "2024-05-03 09:00:00", *req.Patch.ScheduledDateTime)
}

func TestEditEndSendsEndTime(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "09:00", 30))

	m, _ = m.Update(runes("e"))
	assert.Equal(t, "09:30", m.input.Value())
	m.input.SetValue("10:15")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	req := requestFrom(t, cmd)
	require.NotNil(t, req.Patch.EndTime)
	assert.Equal(t, "10:15", *req.Patch.EndTime)
}

func TestStartEditNeedsDate(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Someday"))
	m, cmd := m.Update(runes("s"))
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(), "Set a date first")
}

func TestStartEditOnTaskUnscheduledMeanwhile(t *testing.T) {
	m := newDetail(testutil.ScheduledTask(5, "Standup", "2024-05-01", "09:00", 30))
	m, _ = m.Update(runes("s"))
	require.True(t, m.Editing())

	inbox := testutil.UnscheduledTask(5, "Standup")
	m.SetTask(&inbox)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(), "Task is not scheduled")
}

func TestEscCancelsEdit(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Draft"))
	m, _ = m.Update(runes("t"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestUnchangedTitleSendsNothing(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Draft"))
	m, _ = m.Update(runes("t"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestCycleGoalSkipsArchived(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Read"))
	m.SetGoals([]model.Goal{
		{ID: 3, Title: "Health"},
		{ID: 4, Title: "Old", IsArchived: true},
		{ID: 5, Title: "Career"},
	})

	assert.Equal(t, int32(3), m.nextGoal(0))
	assert.Equal(t, int32(5), m.nextGoal(3))
	assert.Equal(t, int32(0), m.nextGoal(5))

	_, cmd := m.Update(runes("G"))
	req := requestFrom(t, cmd)
	require.NotNil(t, req.Patch.GoalID)
	assert.Equal(t, int32(3), *req.Patch.GoalID)
}

func TestDeleteRequest(t *testing.T) {
	m := newDetail(testutil.UnscheduledTask(2, "Read"))
	_, cmd := m.Update(runes("D"))
	require.NotNil(t, cmd)
	assert.Equal(t, DeleteRequestMsg{TaskID: 2, Title: "Read"}, cmd())
}
