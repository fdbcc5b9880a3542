package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/service"
	"github.com/nhle/miledo/internal/store"
	"github.com/nhle/miledo/tests/testutil"
)

type fixture struct {
	api   *testutil.FakeAPI
	cache *store.SQLiteStore
	tasks *service.TaskService
	goals *service.GoalService
}

func newFixture(t *testing.T, maxAge time.Duration) *fixture {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	cache := testutil.NewTestStore(t)
	client := fake.Client()
	return &fixture{
		api:   fake,
		cache: cache,
		tasks: service.NewTaskService(client, cache, maxAge, nil),
		goals: service.NewGoalService(client, cache, maxAge, nil),
	}
}

// seed puts tasks on the server and loads them into the cache.
func (f *fixture) seed(t *testing.T, tasks ...model.Task) {
	t.Helper()
	for _, task := range tasks {
		f.api.AddTask(task)
	}
	_, err := f.tasks.All(context.Background())
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateDurationRecomputesEnd(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.ScheduledTask(1, "Write report", "2024-05-01", "09:00", 30))

	got, err := f.tasks.Update(context.Background(), 1, reconcile.Patch{DurationMinutes: ptr(int32(45))})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, "2024-05-01 09:00:00", body["scheduled_date_time"])
	assert.Equal(t, "2024-05-01 09:45:00", body["scheduled_end_date_time"])
	assert.Equal(t, "Write report", body["title"])
	assert.EqualValues(t, 45, body["duration_minutes"])

	assert.Equal(t, int32(45), got.DurationMinutes)
	cached, err := f.cache.GetTaskByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(45), cached.DurationMinutes)
	assert.Equal(t, 1, f.api.Calls("GET /api/v1/tasks/{id}"), "task is refetched after update")
}

func TestUpdateTimeKeepsDuration(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.ScheduledTask(1, "Standup", "2024-05-01", "09:00", 15))

	start, _ := schedule.Combine("2024-05-01", "10:00")
	_, err := f.tasks.Update(context.Background(), 1, reconcile.Patch{ScheduledDateTime: &start})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, "2024-05-01 10:00:00", body["scheduled_date_time"])
	assert.Equal(t, "2024-05-01 10:15:00", body["scheduled_end_date_time"])
}

func TestTitleOnlyUpdateKeepsInboxTask(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(2, "Someday"))

	_, err := f.tasks.Update(context.Background(), 2, reconcile.Patch{Title: ptr("Someday maybe")})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, schedule.SentinelDateTime, body["scheduled_date_time"])
	assert.NotContains(t, body, "scheduled_end_date_time")

	server, ok := f.api.Task(2)
	require.True(t, ok)
	assert.True(t, schedule.IsUnscheduled(server.ScheduledDate))
}

func TestShortTitleNeverReachesAPI(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.ScheduledTask(1, "Write report", "2024-05-01", "09:00", 30))
	before := f.api.TotalCalls()

	_, err := f.tasks.Update(context.Background(), 1, reconcile.Patch{Title: ptr("ab")})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, before, f.api.TotalCalls())
}

func TestEndTimeBelowMinimumKeepsDuration(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.ScheduledTask(1, "Write report", "2024-05-01", "09:00", 30))
	before := f.api.TotalCalls()

	_, err := f.tasks.Update(context.Background(), 1, reconcile.Patch{EndTime: ptr("09:05")})
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, before, f.api.TotalCalls())

	cached, err := f.cache.GetTaskByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(30), cached.DurationMinutes)
}

func TestUpdateUncachedTaskIsNotFound(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.tasks.Update(context.Background(), 77, reconcile.Patch{Title: ptr("Anything")})
	assert.True(t, model.IsNotFound(err))
	assert.Zero(t, f.api.TotalCalls())
}

func TestFailedUpdateRollsBack(t *testing.T) {
	f := newFixture(t, 0)
	original := testutil.ScheduledTask(1, "Write report", "2024-05-01", "09:00", 30)
	f.seed(t, original)

	f.api.FailWith(http.StatusInternalServerError)
	_, err := f.tasks.Update(context.Background(), 1, reconcile.Patch{Title: ptr("Rewrite report")})
	require.Error(t, err)

	var sErr *api.StatusError
	assert.ErrorAs(t, err, &sErr)

	cached, err := f.cache.GetTaskByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, original, *cached)
}

func TestToggle(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(3, "Buy milk"))

	got, err := f.tasks.Toggle(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, got.IsDone)

	got, err = f.tasks.Toggle(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, got.IsDone)
}

func TestComplete(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(3, "Buy milk"))

	got, err := f.tasks.Complete(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, got.IsDone)

	cached, err := f.cache.GetTaskByID(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, cached.IsDone)
}

func TestCreateScheduled(t *testing.T) {
	f := newFixture(t, 0)

	task, err := f.tasks.Create(context.Background(), service.NewTask{
		Title:           "  Dentist ",
		GoalID:          2,
		Date:            "2024-05-03",
		Time:            "23:30",
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, "Dentist", body["title"])
	assert.Equal(t, "2024-05-03 23:30:00", body["scheduled_date_time"])
	assert.Equal(t, "2024-05-04 00:30:00", body["scheduled_end_date_time"])

	cached, err := f.cache.GetTaskByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", schedule.ExtractDate(cached.ScheduledDate))
	assert.Equal(t, int32(60), cached.DurationMinutes)
}

func TestCreateWithDateTimeValue(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.tasks.Create(context.Background(), service.NewTask{Title: "Standup", Date: "2024-05-03T10:00:00"})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, "2024-05-03 10:00:00", body["scheduled_date_time"])
	assert.Equal(t, "2024-05-03 10:15:00", body["scheduled_end_date_time"])

	_, err = f.tasks.Create(context.Background(), service.NewTask{Title: "Standup", Date: "2024-05-03T10:00:00", Time: "11:30"})
	require.NoError(t, err)

	body = f.api.LastBody()
	assert.Equal(t, "2024-05-03 11:30:00", body["scheduled_date_time"])
	assert.Equal(t, "2024-05-03 11:45:00", body["scheduled_end_date_time"])
}

func TestCreateUnscheduled(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.tasks.Create(context.Background(), service.NewTask{Title: "Read book", Date: "  "})
	require.NoError(t, err)

	body := f.api.LastBody()
	assert.Equal(t, schedule.SentinelDateTime, body["scheduled_date_time"])
	assert.NotContains(t, body, "scheduled_end_date_time")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name string
		in   service.NewTask
	}{
		{"short title", service.NewTask{Title: " ab "}},
		{"bad date", service.NewTask{Title: "Valid", Date: "2024-02-31"}},
		{"short duration", service.NewTask{Title: "Valid", Date: "2024-05-01", DurationMinutes: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tasks.Create(context.Background(), tt.in)
			assert.True(t, model.IsValidation(err), "got %v", err)
		})
	}
	assert.Zero(t, f.api.TotalCalls())
}

func TestDelete(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(3, "Buy milk"))

	require.NoError(t, f.tasks.Delete(context.Background(), 3))

	_, err := f.cache.GetTaskByID(context.Background(), 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, ok := f.api.Task(3)
	assert.False(t, ok)
}

func TestViewsReplaceTheirScope(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t,
		testutil.ScheduledTask(1, "Gym", "2024-05-01", "07:00", 60),
		testutil.ScheduledTask(2, "Review", "2024-05-02", "10:00", 30),
		testutil.UnscheduledTask(3, "Buy milk"),
	)

	today, err := f.tasks.Today(context.Background(), time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "Gym", today[0].Title)

	inbox, err := f.tasks.Inbox(context.Background())
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(3), inbox[0].ID)

	_, err = f.tasks.Period(context.Background(), "May 1", "2024-05-02")
	assert.True(t, model.IsValidation(err))
}

func TestViewFallsBackToCacheOnFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(3, "Buy milk"))

	f.api.FailWith(http.StatusBadGateway)
	tasks, err := f.tasks.All(context.Background())
	require.Error(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
}

func TestFreshViewIsServedFromCache(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.api.AddTask(testutil.UnscheduledTask(3, "Buy milk"))

	_, err := f.tasks.All(context.Background())
	require.NoError(t, err)
	_, err = f.tasks.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.Calls("GET /api/v1/tasks/"))

	// A mutation invalidates the lists.
	_, err = f.tasks.Toggle(context.Background(), 3)
	require.NoError(t, err)
	_, err = f.tasks.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.api.Calls("GET /api/v1/tasks/"))
}

func TestStats(t *testing.T) {
	f := newFixture(t, 0)
	done := testutil.UnscheduledTask(1, "Done thing")
	done.IsDone = true
	f.api.AddTask(done)
	f.api.AddTask(testutil.UnscheduledTask(2, "Open thing"))

	stats, err := f.tasks.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{TotalTasks: 2, Completed: 1}, *stats)
}

func TestGetFetchesUncachedTask(t *testing.T) {
	f := newFixture(t, 0)
	f.api.AddTask(testutil.UnscheduledTask(9, "Remote only"))

	got, err := f.tasks.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Remote only", got.Title)

	_, err = f.cache.GetTaskByID(context.Background(), 9)
	assert.NoError(t, err)
}

func TestGetRefetchesStaleTask(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(4, "Old title"))
	ctx := context.Background()

	renamed := testutil.UnscheduledTask(4, "New title")
	f.api.AddTask(renamed)

	got, err := f.tasks.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Old title", got.Title, "fresh rows come from the cache")
	assert.Zero(t, f.api.Calls("GET /api/v1/tasks/{id}"))

	require.NoError(t, f.cache.InvalidateTask(ctx, 4))
	got, err = f.tasks.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, 1, f.api.Calls("GET /api/v1/tasks/{id}"))

	stale, err := f.cache.StaleTaskIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestGetServesStaleTaskWhenOffline(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(4, "Cached"))
	ctx := context.Background()
	require.NoError(t, f.cache.InvalidateTask(ctx, 4))

	f.api.FailWith(http.StatusBadGateway)
	got, err := f.tasks.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Title)
}

func TestUnscheduleMany(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t,
		testutil.ScheduledTask(1, "Gym", "2024-05-01", "07:00", 60),
		testutil.ScheduledTask(2, "Review", "2024-05-02", "10:00", 30),
	)

	n, err := f.tasks.UnscheduleMany(context.Background(), []int64{1, 2, 99})
	assert.Equal(t, 2, n)
	assert.True(t, model.IsNotFound(err))

	for _, id := range []int64{1, 2} {
		server, ok := f.api.Task(id)
		require.True(t, ok)
		assert.True(t, schedule.IsUnscheduled(server.ScheduledDate))
	}
}

func TestDeleteMany(t *testing.T) {
	f := newFixture(t, 0)
	f.seed(t, testutil.UnscheduledTask(1, "One"), testutil.UnscheduledTask(2, "Two"))

	n, err := f.tasks.DeleteMany(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.api.Calls("DELETE /api/v1/tasks/{id}"))
}
