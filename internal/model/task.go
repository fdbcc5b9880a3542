package model

// Task is the client-side representation of a task owned by the mile-do API.
// The client only holds it in a read-through cache.
type Task struct {
	// ID is the server-assigned identifier. It never changes.
	ID int64 `json:"id" db:"id"`

	// GoalID references the owning goal. Zero means unassigned (inbox).
	GoalID int32 `json:"goal_id" db:"goal_id"`

	Title  string `json:"title" db:"title"`
	IsDone bool   `json:"is_done" db:"is_done"`

	// ScheduledDate is the backend datetime string carrying the scheduled
	// day, or the "0001-01-01 00:00:00" sentinel when unscheduled.
	ScheduledDate string `json:"scheduled_date" db:"scheduled_date"`

	// HasTime reports whether the backend stored an explicit start time.
	HasTime bool `json:"has_time" db:"has_time"`

	// ScheduledTime is the backend datetime string whose time part is the
	// start time of the task.
	ScheduledTime string `json:"scheduled_time" db:"scheduled_time"`

	DurationMinutes int32  `json:"duration_minutes" db:"duration_minutes"`
	RescheduleCount int32  `json:"reschedule_count" db:"reschedule_count"`
	CreatedAt       string `json:"created_at" db:"created_at"`
}

// TaskStats is the completion summary for the current day.
type TaskStats struct {
	TotalTasks int32 `json:"total_tasks" yaml:"total_tasks"`
	Completed  int32 `json:"completed" yaml:"completed"`
}
