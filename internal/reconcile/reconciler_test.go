package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

type mapLookup map[int64]model.Task

func (m mapLookup) CachedTask(_ context.Context, id int64) (*model.Task, error) {
	task, ok := m[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "task", ID: id}
	}
	return &task, nil
}

func ptr[T any](v T) *T { return &v }

func scheduledTask() model.Task {
	return model.Task{
		ID:              1,
		GoalID:          4,
		Title:           "Write report",
		ScheduledDate:   "2024-05-01 00:00:00 +0000 UTC",
		HasTime:         true,
		ScheduledTime:   "2024-05-01 09:00:00 +0000 UTC",
		DurationMinutes: 30,
	}
}

func unscheduledTask() model.Task {
	return model.Task{
		ID:              2,
		Title:           "Someday",
		ScheduledDate:   "0001-01-01 00:00:00 +0000 UTC",
		ScheduledTime:   "0001-01-01 00:00:00 +0000 UTC",
		DurationMinutes: 15,
	}
}

func newTestReconciler(tasks ...model.Task) *Reconciler {
	lookup := mapLookup{}
	for _, task := range tasks {
		lookup[task.ID] = task
	}
	return New(lookup)
}

func TestTitleOnlyPatchKeepsTaskUnscheduled(t *testing.T) {
	r := newTestReconciler(unscheduledTask())

	res, err := r.Reconcile(context.Background(), 2, Patch{Title: ptr("Someday soon")})
	require.NoError(t, err)

	assert.Equal(t, schedule.SentinelDateTime, res.Payload.ScheduledDateTime)
	assert.Empty(t, res.Payload.ScheduledEndDateTime)
	assert.Equal(t, "Someday soon", res.Payload.Title)
	assert.Equal(t, Unchanged, Transition(res.Cached, res.Payload))
}

func TestDurationOnlyPatchRecomputesEnd(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	res, err := r.Reconcile(context.Background(), 1, Patch{DurationMinutes: ptr(int32(45))})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01 09:00:00", res.Payload.ScheduledDateTime)
	assert.Equal(t, "2024-05-01 09:45:00", res.Payload.ScheduledEndDateTime)
	assert.Equal(t, int32(45), res.Payload.DurationMinutes)
	assert.Equal(t, Rescheduled, Transition(res.Cached, res.Payload))
}

func TestShortTitleIsRejected(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	for _, title := range []string{"ab", "  ab  ", ""} {
		_, err := r.Reconcile(context.Background(), 1, Patch{Title: ptr(title)})
		require.Error(t, err)
		assert.True(t, model.IsValidation(err), "title %q", title)
	}
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	for _, title := range []string{"éé", "日本", " 日本 "} {
		_, err := r.Reconcile(context.Background(), 1, Patch{Title: ptr(title)})
		require.Error(t, err)
		assert.True(t, model.IsValidation(err), "title %q", title)
	}

	res, err := r.Reconcile(context.Background(), 1, Patch{Title: ptr("日本語")})
	require.NoError(t, err)
	assert.Equal(t, "日本語", res.Payload.Title)
}

func TestTimeChangeKeepsDuration(t *testing.T) {
	task := scheduledTask()
	task.DurationMinutes = 15
	r := newTestReconciler(task)

	start, ok := schedule.Combine("2024-05-01", "10:00")
	require.True(t, ok)

	res, err := r.Reconcile(context.Background(), 1, Patch{ScheduledDateTime: &start})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01 10:00:00", res.Payload.ScheduledDateTime)
	assert.Equal(t, "2024-05-01 10:15:00", res.Payload.ScheduledEndDateTime)
	assert.Equal(t, int32(15), res.Payload.DurationMinutes)
}

func TestEndTimeEditDerivesDuration(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	res, err := r.Reconcile(context.Background(), 1, Patch{EndTime: ptr("10:30")})
	require.NoError(t, err)

	assert.Equal(t, int32(90), res.Payload.DurationMinutes)
	assert.Equal(t, "2024-05-01 10:30:00", res.Payload.ScheduledEndDateTime)
}

func TestEndTimeEditAcrossMidnight(t *testing.T) {
	task := scheduledTask()
	task.ScheduledTime = "2024-05-01 23:30:00"
	r := newTestReconciler(task)

	res, err := r.Reconcile(context.Background(), 1, Patch{EndTime: ptr("00:15")})
	require.NoError(t, err)

	assert.Equal(t, int32(45), res.Payload.DurationMinutes)
	assert.Equal(t, "2024-05-02 00:15:00", res.Payload.ScheduledEndDateTime)
}

func TestEndTimeEditBelowMinimumIsRejected(t *testing.T) {
	task := scheduledTask()
	lookup := mapLookup{task.ID: task}
	r := New(lookup)

	_, err := r.Reconcile(context.Background(), 1, Patch{EndTime: ptr("09:10")})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	// The cached duration is untouched.
	assert.Equal(t, int32(30), lookup[1].DurationMinutes)
}

func TestEndTimeEditOnUnscheduledTaskIsRejected(t *testing.T) {
	r := newTestReconciler(unscheduledTask())

	_, err := r.Reconcile(context.Background(), 2, Patch{EndTime: ptr("10:00")})
	assert.True(t, model.IsValidation(err))
}

func TestShortDurationIsRejected(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	_, err := r.Reconcile(context.Background(), 1, Patch{DurationMinutes: ptr(int32(10))})
	assert.True(t, model.IsValidation(err))
}

func TestMissingTaskIsNotFound(t *testing.T) {
	r := newTestReconciler()

	_, err := r.Reconcile(context.Background(), 99, Patch{Title: ptr("Anything")})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestLookupErrorIsWrapped(t *testing.T) {
	boom := errors.New("disk gone")
	r := New(failingLookup{err: boom})

	_, err := r.Reconcile(context.Background(), 1, Patch{})
	assert.ErrorIs(t, err, boom)
}

type failingLookup struct{ err error }

func (f failingLookup) CachedTask(context.Context, int64) (*model.Task, error) {
	return nil, f.err
}

func TestDateWithoutTimeDefaultsToNine(t *testing.T) {
	task := scheduledTask()
	task.HasTime = false
	r := newTestReconciler(task)

	res, err := r.Reconcile(context.Background(), 1, Patch{IsDone: ptr(true)})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01 09:00:00", res.Payload.ScheduledDateTime)
	assert.Equal(t, "2024-05-01 09:30:00", res.Payload.ScheduledEndDateTime)
	assert.True(t, res.Payload.IsDone)
}

func TestSchedulingAnUnscheduledTask(t *testing.T) {
	r := newTestReconciler(unscheduledTask())

	res, err := r.Reconcile(context.Background(), 2, Patch{ScheduledDateTime: ptr("2024-06-10")})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-10 09:00:00", res.Payload.ScheduledDateTime)
	assert.Equal(t, "2024-06-10 09:15:00", res.Payload.ScheduledEndDateTime)
	assert.Equal(t, Scheduled, Transition(res.Cached, res.Payload))
}

func TestClearingDateSendsSentinel(t *testing.T) {
	for _, cleared := range []string{"", schedule.SentinelDateTime, "0001-01-01T00:00:00Z"} {
		r := newTestReconciler(scheduledTask())

		res, err := r.Reconcile(context.Background(), 1, Patch{ScheduledDateTime: ptr(cleared)})
		require.NoError(t, err)

		assert.Equal(t, schedule.SentinelDateTime, res.Payload.ScheduledDateTime)
		assert.Empty(t, res.Payload.ScheduledEndDateTime)
		assert.Equal(t, Unscheduled, Transition(res.Cached, res.Payload))
	}
}

func TestInvalidScheduledDateIsRejected(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	_, err := r.Reconcile(context.Background(), 1, Patch{ScheduledDateTime: ptr("2024-13-45 10:00:00")})
	assert.True(t, model.IsValidation(err))
}

func TestPayloadCarriesEveryField(t *testing.T) {
	r := newTestReconciler(scheduledTask())

	res, err := r.Reconcile(context.Background(), 1, Patch{GoalID: ptr(int32(7))})
	require.NoError(t, err)

	assert.Equal(t, Payload{
		Title:                "Write report",
		GoalID:               7,
		IsDone:               false,
		ScheduledDateTime:    "2024-05-01 09:00:00",
		DurationMinutes:      30,
		ScheduledEndDateTime: "2024-05-01 09:30:00",
	}, res.Payload)
}

func TestCachedDurationBelowFloorIsRaised(t *testing.T) {
	task := unscheduledTask()
	task.DurationMinutes = 0
	r := newTestReconciler(task)

	res, err := r.Reconcile(context.Background(), 2, Patch{})
	require.NoError(t, err)
	assert.Equal(t, int32(schedule.MinDuration), res.Payload.DurationMinutes)
}

func TestPayloadApply(t *testing.T) {
	p := Payload{
		Title:             "New title",
		GoalID:            3,
		IsDone:            true,
		ScheduledDateTime: "2024-05-01 10:00:00",
		DurationMinutes:   60,
	}

	got := p.Apply(scheduledTask())
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "New title", got.Title)
	assert.True(t, got.HasTime)
	assert.Equal(t, "2024-05-01 10:00:00", StartDateTime(got))
	assert.Equal(t, "11:00", EndClock(got))

	cleared := Payload{Title: "x", ScheduledDateTime: schedule.SentinelDateTime, DurationMinutes: 15}.Apply(got)
	assert.False(t, cleared.HasTime)
	assert.Equal(t, "", EndClock(cleared))
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{IsDone: ptr(false)}.IsEmpty())
}
