package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/miledo/internal/model"
)

// ErrNotFound is returned when a cached row does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering and pagination for cached task queries.
// Date, After and Before compare against the YYYY-MM-DD scheduled day.
type TaskFilter struct {
	GoalID *int32
	Inbox  bool // unscheduled tasks only
	Date   *string
	After  *string // inclusive
	Before *string // exclusive
	IsDone *bool
	Query  *string
	Limit  int
}

// Scope names a slice of the task list that is fetched from the API as a
// unit. Replacing a scope removes cached rows the API no longer returns.
type Scope struct {
	kind   string
	goalID int64
	after  string
	before string
}

// ScopeAll is every task.
func ScopeAll() Scope { return Scope{kind: "all"} }

// ScopeInbox is the unscheduled tasks.
func ScopeInbox() Scope { return Scope{kind: "inbox"} }

// ScopeGoal is the tasks owned by one goal.
func ScopeGoal(goalID int64) Scope { return Scope{kind: "goal", goalID: goalID} }

// ScopePeriod is the tasks scheduled on or after after and before before,
// matching GET /tasks/period.
func ScopePeriod(after, before string) Scope {
	return Scope{kind: "period", after: after, before: before}
}

// Key identifies the scope in cache_meta.
func (s Scope) Key() string {
	switch s.kind {
	case "goal":
		return fmt.Sprintf("tasks:goal:%d", s.goalID)
	case "period":
		return fmt.Sprintf("tasks:period:%s:%s", s.after, s.before)
	default:
		return "tasks:" + s.kind
	}
}

// Filter returns the cached-row filter matching the scope.
func (s Scope) Filter() TaskFilter {
	switch s.kind {
	case "inbox":
		return TaskFilter{Inbox: true}
	case "goal":
		id := int32(s.goalID)
		return TaskFilter{GoalID: &id}
	case "period":
		after, before := s.after, s.before
		return TaskFilter{After: &after, Before: &before}
	default:
		return TaskFilter{}
	}
}

// GoalsKey is the cache_meta key of the goal list.
const GoalsKey = "goals"

// Cache is the client-side read-through cache of API resources plus the
// local preference store. Rows may be stale between invalidations.
type Cache interface {
	// === Tasks ===

	UpsertTasks(ctx context.Context, tasks []model.Task) error
	ReplaceTasks(ctx context.Context, scope Scope, tasks []model.Task) error
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	GetTasks(ctx context.Context, opts TaskFilter) ([]model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	InvalidateTask(ctx context.Context, id int64) error
	StaleTaskIDs(ctx context.Context) ([]int64, error)
	CachedTask(ctx context.Context, id int64) (*model.Task, error)

	// === Goals ===

	UpsertGoals(ctx context.Context, goals []model.Goal) error
	ReplaceGoals(ctx context.Context, goals []model.Goal) error
	GetGoalByID(ctx context.Context, id int64) (*model.Goal, error)
	GetGoals(ctx context.Context, includeArchived bool) ([]model.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error

	// === Freshness ===

	MarkFetched(ctx context.Context, key string, at time.Time) error
	LastFetched(ctx context.Context, key string) (time.Time, error)
	IsStale(ctx context.Context, key string, maxAge time.Duration, now time.Time) (bool, error)
	InvalidateTasks(ctx context.Context) error
	InvalidateGoals(ctx context.Context) error

	// === Preferences ===

	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
	DeletePref(ctx context.Context, key string) error

	Close() error
}
