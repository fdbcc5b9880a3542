// Package reconcile merges a partial task edit into the last cached copy of
// the task and produces the complete payload the API expects.
//
// The cache may be stale between invalidations. The reconciler reads
// whatever the cache holds and never fetches on its own, so two edits built
// from the same stale snapshot each carry that snapshot's unedited fields.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

// MinTitleLength is the shortest title accepted after trimming.
const MinTitleLength = 3

// TaskLookup reads a task from the client-side cache.
// Implementations return a *model.NotFoundError when the task is absent.
type TaskLookup interface {
	CachedTask(ctx context.Context, id int64) (*model.Task, error)
}

// Patch is a partial edit. Nil fields are left as cached.
type Patch struct {
	Title  *string
	GoalID *int32
	IsDone *bool

	// ScheduledDateTime is a backend datetime. An empty string or the
	// sentinel clears the schedule.
	ScheduledDateTime *string

	DurationMinutes *int32

	// EndTime is an HH:MM end-time edit. The duration is derived from it.
	EndTime *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.GoalID == nil && p.IsDone == nil &&
		p.ScheduledDateTime == nil && p.DurationMinutes == nil && p.EndTime == nil
}

// Payload is the full update body sent to PATCH /tasks/{id}.
type Payload struct {
	Title                string `json:"title" validate:"required,max=256"`
	GoalID               int32  `json:"goal_id" validate:"gte=0"`
	IsDone               bool   `json:"is_done"`
	ScheduledDateTime    string `json:"scheduled_date_time" validate:"required"`
	DurationMinutes      int32  `json:"duration_minutes" validate:"gte=15"`
	ScheduledEndDateTime string `json:"scheduled_end_date_time,omitempty"`
}

// Scheduled reports whether the payload carries a real schedule.
func (p Payload) Scheduled() bool {
	return !schedule.IsUnscheduled(p.ScheduledDateTime)
}

// Apply returns task with the payload's fields written over it, in the
// shape the API returns. It is used for optimistic cache writes.
func (p Payload) Apply(task model.Task) model.Task {
	task.Title = p.Title
	task.GoalID = p.GoalID
	task.IsDone = p.IsDone
	task.DurationMinutes = p.DurationMinutes
	task.ScheduledDate = p.ScheduledDateTime
	task.ScheduledTime = p.ScheduledDateTime
	task.HasTime = p.Scheduled()
	return task
}

// Result pairs the reconciled payload with the snapshot it was built from.
type Result struct {
	Cached  model.Task
	Payload Payload
}

// Reconciler builds update payloads from patches.
type Reconciler struct {
	lookup   TaskLookup
	validate *validator.Validate
}

// New creates a Reconciler that reads cached tasks from lookup.
func New(lookup TaskLookup) *Reconciler {
	return &Reconciler{lookup: lookup, validate: newValidator()}
}

// Reconcile merges patch over the cached task with the given id.
// It returns *model.NotFoundError when the task is not cached and
// *model.ValidationError when the edit would produce an invalid task.
func (r *Reconciler) Reconcile(ctx context.Context, id int64, patch Patch) (*Result, error) {
	cached, err := r.lookup.CachedTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up task %d: %w", id, err)
	}
	if cached == nil {
		return nil, &model.NotFoundError{Resource: "task", ID: id}
	}

	payload := Payload{
		Title:  cached.Title,
		GoalID: cached.GoalID,
		IsDone: cached.IsDone,
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if utf8.RuneCountInString(title) < MinTitleLength {
			return nil, model.NewValidationError("title", "must be at least %d characters", MinTitleLength)
		}
		payload.Title = title
	}
	if patch.GoalID != nil {
		payload.GoalID = *patch.GoalID
	}
	if patch.IsDone != nil {
		payload.IsDone = *patch.IsDone
	}

	start, err := resolveStart(*cached, patch.ScheduledDateTime)
	if err != nil {
		return nil, err
	}
	payload.ScheduledDateTime = start

	duration, err := resolveDuration(*cached, patch.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if patch.EndTime != nil {
		duration, err = durationFromEnd(start, *patch.EndTime)
		if err != nil {
			return nil, err
		}
	}
	payload.DurationMinutes = int32(duration)

	if payload.Scheduled() {
		end, err := schedule.EndDateTime(start, duration)
		if err != nil {
			return nil, model.NewValidationError("scheduled_date_time", "%v", err)
		}
		payload.ScheduledEndDateTime = end
	}

	if err := r.validatePayload(payload); err != nil {
		return nil, err
	}

	return &Result{Cached: *cached, Payload: payload}, nil
}

// StartDateTime reconstructs the backend start datetime of a cached task.
// A dated task without a stored time starts at schedule.DefaultTime; an
// unscheduled task yields schedule.SentinelDateTime.
func StartDateTime(task model.Task) string {
	date := schedule.ExtractDate(task.ScheduledDate)
	if date == "" {
		return schedule.SentinelDateTime
	}
	clock := ""
	if task.HasTime {
		clock = schedule.ExtractTime(task.ScheduledTime)
	}
	combined, ok := schedule.Combine(date, clock)
	if !ok {
		return schedule.SentinelDateTime
	}
	return combined
}

// EndClock returns the HH:MM end time of a scheduled task, or "" when the
// task is unscheduled.
func EndClock(task model.Task) string {
	start := StartDateTime(task)
	if schedule.IsUnscheduled(start) {
		return ""
	}
	end, err := schedule.AddMinutes(schedule.ExtractTime(start), floorDuration(int(task.DurationMinutes)))
	if err != nil {
		return ""
	}
	return end
}

func resolveStart(cached model.Task, patched *string) (string, error) {
	if patched == nil {
		return StartDateTime(cached), nil
	}

	value := strings.TrimSpace(*patched)
	if value == "" || schedule.IsUnscheduled(value) {
		return schedule.SentinelDateTime, nil
	}

	date := schedule.ExtractDate(value)
	if !validDate(date) {
		return "", model.NewValidationError("scheduled_date_time", "invalid date %q", value)
	}
	combined, _ := schedule.Combine(date, schedule.ExtractTime(value))
	return combined, nil
}

func resolveDuration(cached model.Task, patched *int32) (int, error) {
	if patched != nil {
		if !schedule.ValidDuration(int(*patched)) {
			return 0, model.NewValidationError("duration_minutes", "must be at least %d minutes", schedule.MinDuration)
		}
		return int(*patched), nil
	}
	return floorDuration(int(cached.DurationMinutes)), nil
}

func durationFromEnd(start, end string) (int, error) {
	if schedule.IsUnscheduled(start) {
		return 0, model.NewValidationError("end_time", "task has no scheduled date")
	}
	minutes, err := schedule.DurationBetween(schedule.ExtractTime(start), end)
	if err != nil {
		return 0, model.NewValidationError("end_time", "%v", err)
	}
	if !schedule.ValidDuration(minutes) {
		return 0, model.NewValidationError("end_time", "must be at least %d minutes after the start", schedule.MinDuration)
	}
	return minutes, nil
}

func floorDuration(minutes int) int {
	if minutes < schedule.MinDuration {
		return schedule.MinDuration
	}
	return minutes
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (r *Reconciler) validatePayload(p Payload) error {
	err := r.validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return model.NewValidationError(fe.Field(), "failed %q check", fe.Tag())
	}
	return fmt.Errorf("validating payload: %w", err)
}
