// Package service applies task and goal mutations against the API while
// keeping the local cache consistent with what the server accepted.
//
// Every mutation follows the same order: validate locally, write the
// expected result into the cache, call the API, then either refetch the
// server's copy or restore the snapshot. Requests are never retried and
// concurrent edits are not coalesced; the server applies the last write.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/reconcile"
	"github.com/nhle/miledo/internal/schedule"
	"github.com/nhle/miledo/internal/store"
)

// TaskAPI is the subset of the API client the task service needs.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListInbox(ctx context.Context) ([]model.Task, error)
	ListPeriod(ctx context.Context, after, before string) ([]model.Task, error)
	ListGoalTasks(ctx context.Context, goalID int64) ([]model.Task, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	CreateTask(ctx context.Context, req api.CreateTaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, id int64, req api.UpdateTaskRequest) (*model.Task, error)
	CompleteTask(ctx context.Context, id int64) (*model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	AnalyzeToday(ctx context.Context) (*model.TaskStats, error)
}

// NewTask is the input for creating a task. An empty Date leaves the task
// in the inbox.
type NewTask struct {
	Title           string `validate:"min=3,max=256"`
	GoalID          int32  `validate:"gte=0"`
	Date            string
	Time            string
	DurationMinutes int32
}

// TaskService mutates and lists tasks.
type TaskService struct {
	api        TaskAPI
	cache      store.Cache
	reconciler *reconcile.Reconciler
	validate   *validator.Validate
	logger     *slog.Logger
	maxAge     time.Duration
	now        func() time.Time
}

// NewTaskService creates a TaskService. A positive maxAge lets list views
// answer from the cache while it is fresher than maxAge.
func NewTaskService(client TaskAPI, cache store.Cache, maxAge time.Duration, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		api:        client,
		cache:      cache,
		reconciler: reconcile.New(cache),
		validate:   validator.New(),
		logger:     logger,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Update reconciles patch against the cached task and sends the full
// payload. Validation and lookup errors are returned before any request.
// On API failure the cached task is restored.
func (s *TaskService) Update(ctx context.Context, id int64, patch reconcile.Patch) (*model.Task, error) {
	res, err := s.reconciler.Reconcile(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	optimistic := res.Payload.Apply(res.Cached)
	if err := s.cache.UpsertTasks(ctx, []model.Task{optimistic}); err != nil {
		s.logger.Warn("failed on optimistic task write", "id", id, "error", err)
	}

	_, err = s.api.UpdateTask(ctx, id, updateRequest(res.Payload))
	if err != nil {
		s.rollback(ctx, res.Cached)
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}

	s.logger.Debug("task updated",
		"id", id,
		"transition", reconcile.Transition(res.Cached, res.Payload).String(),
	)

	return s.refetch(ctx, id, optimistic), nil
}

// Toggle flips the done flag of a cached task.
func (s *TaskService) Toggle(ctx context.Context, id int64) (*model.Task, error) {
	cached, err := s.cache.CachedTask(ctx, id)
	if err != nil {
		return nil, err
	}
	done := !cached.IsDone
	return s.Update(ctx, id, reconcile.Patch{IsDone: &done})
}

// Unschedule moves a task back to the inbox.
func (s *TaskService) Unschedule(ctx context.Context, id int64) (*model.Task, error) {
	none := ""
	return s.Update(ctx, id, reconcile.Patch{ScheduledDateTime: &none})
}

// UnscheduleMany unschedules each task in turn. Failures do not stop the
// batch; the count of successes comes back with the joined errors.
func (s *TaskService) UnscheduleMany(ctx context.Context, ids []int64) (int, error) {
	var errs []error
	n := 0
	for _, id := range ids {
		if _, err := s.Unschedule(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// DeleteMany deletes each task in turn, continuing past failures.
func (s *TaskService) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	var errs []error
	n := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Complete marks a task done through the dedicated endpoint.
func (s *TaskService) Complete(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.api.CompleteTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("completing task %d: %w", id, err)
	}
	s.store(ctx, task)
	return task, nil
}

// Create validates and creates a task. The new task is scheduled only when
// Date is a real date.
func (s *TaskService) Create(ctx context.Context, in NewTask) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	req := api.CreateTaskRequest{
		GoalID:            in.GoalID,
		Title:             in.Title,
		ScheduledDateTime: schedule.SentinelDateTime,
	}

	if schedule.IsSchedulable(in.Date) {
		// Date may carry its own time ("2024-05-03T10:00:00"); an explicit
		// Time wins over it.
		date := schedule.ExtractDate(in.Date)
		if !validDate(date) {
			return nil, model.NewValidationError("date", "invalid date %q", in.Date)
		}
		clock := in.Time
		if strings.TrimSpace(clock) == "" {
			clock = schedule.ExtractTime(in.Date)
		}
		start, _ := schedule.Combine(date, clock)

		duration := int(in.DurationMinutes)
		if duration == 0 {
			duration = schedule.MinDuration
		}
		if !schedule.ValidDuration(duration) {
			return nil, model.NewValidationError("duration_minutes", "must be at least %d minutes", schedule.MinDuration)
		}

		end, err := schedule.EndDateTime(start, duration)
		if err != nil {
			return nil, model.NewValidationError("date", "%v", err)
		}
		req.ScheduledDateTime = start
		req.ScheduledEndDateTime = end
	}

	task, err := s.api.CreateTask(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	s.store(ctx, task)
	return task, nil
}

// Delete removes a task on the server, then from the cache.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	if err := s.cache.DeleteTask(ctx, id); err != nil {
		s.logger.Warn("failed on deleting cached task", "id", id, "error", err)
	}
	s.invalidateLists(ctx)
	return nil
}

// Stats returns today's completion summary.
func (s *TaskService) Stats(ctx context.Context) (*model.TaskStats, error) {
	stats, err := s.api.AnalyzeToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyzing today: %w", err)
	}
	return stats, nil
}

// Get returns the cached task, fetching it when it is not cached yet or
// was marked stale after a failed refetch. A stale row that still cannot
// be fetched is returned as cached.
func (s *TaskService) Get(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.cache.CachedTask(ctx, id)
	if err == nil {
		if !s.isStale(ctx, id) {
			return task, nil
		}
		fresh, err := s.api.GetTask(ctx, id)
		if err != nil {
			s.logger.Warn("serving stale task", "id", id, "error", err)
			return task, nil
		}
		s.store(ctx, fresh)
		return fresh, nil
	}
	if !model.IsNotFound(err) {
		return nil, err
	}
	task, err = s.api.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching task %d: %w", id, err)
	}
	s.store(ctx, task)
	return task, nil
}

// Inbox lists unscheduled tasks.
func (s *TaskService) Inbox(ctx context.Context) ([]model.Task, error) {
	return s.view(ctx, store.ScopeInbox(), s.api.ListInbox)
}

// All lists every task.
func (s *TaskService) All(ctx context.Context) ([]model.Task, error) {
	return s.view(ctx, store.ScopeAll(), s.api.ListTasks)
}

// Today lists the tasks scheduled on now's date.
func (s *TaskService) Today(ctx context.Context, now time.Time) ([]model.Task, error) {
	today := schedule.Today(now)
	tomorrow := schedule.Today(now.AddDate(0, 0, 1))
	return s.Period(ctx, today, tomorrow)
}

// Period lists tasks scheduled from after (inclusive) to before (exclusive).
func (s *TaskService) Period(ctx context.Context, after, before string) ([]model.Task, error) {
	if !validDate(after) || !validDate(before) {
		return nil, model.NewValidationError("period", "dates must be YYYY-MM-DD")
	}
	return s.view(ctx, store.ScopePeriod(after, before), func(ctx context.Context) ([]model.Task, error) {
		return s.api.ListPeriod(ctx, after, before)
	})
}

// ByGoal lists the tasks of one goal.
func (s *TaskService) ByGoal(ctx context.Context, goalID int64) ([]model.Task, error) {
	return s.view(ctx, store.ScopeGoal(goalID), func(ctx context.Context) ([]model.Task, error) {
		return s.api.ListGoalTasks(ctx, goalID)
	})
}

// Refresh drops every task list's freshness and refetches all tasks.
func (s *TaskService) Refresh(ctx context.Context) ([]model.Task, error) {
	s.invalidateLists(ctx)
	return s.All(ctx)
}

// Cached lists what the cache holds for scope without touching the API.
func (s *TaskService) Cached(ctx context.Context, scope store.Scope) ([]model.Task, error) {
	return s.cache.GetTasks(ctx, scope.Filter())
}

// view answers from the cache while scope is fresh, otherwise fetches and
// replaces the scope. When the fetch fails the cached rows are returned
// together with the error so callers can show stale data.
func (s *TaskService) view(
	ctx context.Context,
	scope store.Scope,
	fetch func(context.Context) ([]model.Task, error),
) ([]model.Task, error) {
	if s.maxAge > 0 {
		stale, err := s.cache.IsStale(ctx, scope.Key(), s.maxAge, s.now())
		if err == nil && !stale {
			return s.cache.GetTasks(ctx, scope.Filter())
		}
	}

	tasks, err := fetch(ctx)
	if err != nil {
		cached, cacheErr := s.cache.GetTasks(ctx, scope.Filter())
		if cacheErr != nil {
			return nil, errors.Join(fmt.Errorf("fetching %s: %w", scope.Key(), err), cacheErr)
		}
		return cached, fmt.Errorf("fetching %s: %w", scope.Key(), err)
	}

	if err := s.cache.ReplaceTasks(ctx, scope, tasks); err != nil {
		s.logger.Warn("failed on caching tasks", "scope", scope.Key(), "error", err)
		return tasks, nil
	}
	return s.cache.GetTasks(ctx, scope.Filter())
}

// refetch replaces the optimistic row with the server's copy. If that
// fails the row is marked stale and the optimistic copy is returned.
func (s *TaskService) refetch(ctx context.Context, id int64, optimistic model.Task) *model.Task {
	defer s.invalidateLists(ctx)

	fresh, err := s.api.GetTask(ctx, id)
	if err != nil {
		s.logger.Warn("failed on refetching task", "id", id, "error", err)
		if err := s.cache.InvalidateTask(ctx, id); err != nil {
			s.logger.Warn("failed on invalidating task", "id", id, "error", err)
		}
		return &optimistic
	}
	if err := s.cache.UpsertTasks(ctx, []model.Task{*fresh}); err != nil {
		s.logger.Warn("failed on caching task", "id", id, "error", err)
	}
	return fresh
}

func (s *TaskService) isStale(ctx context.Context, id int64) bool {
	ids, err := s.cache.StaleTaskIDs(ctx)
	if err != nil {
		s.logger.Warn("failed on listing stale tasks", "error", err)
		return false
	}
	return slices.Contains(ids, id)
}

func (s *TaskService) rollback(ctx context.Context, snapshot model.Task) {
	if err := s.cache.UpsertTasks(ctx, []model.Task{snapshot}); err != nil {
		s.logger.Error("failed on rolling back task", "id", snapshot.ID, "error", err)
	}
}

func (s *TaskService) store(ctx context.Context, task *model.Task) {
	if err := s.cache.UpsertTasks(ctx, []model.Task{*task}); err != nil {
		s.logger.Warn("failed on caching task", "id", task.ID, "error", err)
	}
	s.invalidateLists(ctx)
}

func (s *TaskService) invalidateLists(ctx context.Context) {
	if err := s.cache.InvalidateTasks(ctx); err != nil {
		s.logger.Warn("failed on invalidating task lists", "error", err)
	}
}

func updateRequest(p reconcile.Payload) api.UpdateTaskRequest {
	return api.UpdateTaskRequest{
		GoalID:               p.GoalID,
		Title:                p.Title,
		IsDone:               p.IsDone,
		ScheduledDateTime:    p.ScheduledDateTime,
		DurationMinutes:      p.DurationMinutes,
		ScheduledEndDateTime: p.ScheduledEndDateTime,
	}
}
