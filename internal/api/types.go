package api

import "github.com/nhle/miledo/internal/model"

// ErrorResponse is the body the API returns on failure.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ListTasksResponse is the response from the task list endpoints.
type ListTasksResponse struct {
	UserID   int32        `json:"user_id"`
	TaskData []model.Task `json:"task_data"`
}

// ListGoalsResponse is the response from GET /goals/.
type ListGoalsResponse struct {
	UserID int32        `json:"user_id"`
	Data   []model.Goal `json:"data"`
}

// CreateTaskRequest is the body of POST /tasks/. An unscheduled task
// carries the sentinel datetime and no end.
type CreateTaskRequest struct {
	GoalID               int32  `json:"goal_id"`
	Title                string `json:"title"`
	ScheduledDateTime    string `json:"scheduled_date_time"`
	ScheduledEndDateTime string `json:"scheduled_end_date_time,omitempty"`
}

// CreateGoalRequest is the body of POST /goals/.
type CreateGoalRequest struct {
	Title        string `json:"title"`
	Color        string `json:"color,omitempty"`
	CategoryType string `json:"category_type"`
}

// UpdateGoalRequest is the body of PATCH /goals/. The API expects every
// field, so callers start from the current goal.
type UpdateGoalRequest struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Color        string `json:"color,omitempty"`
	CategoryType string `json:"category_type"`
	IsArchived   bool   `json:"is_archived"`
}

// User is the response from GET /users/me.
type User struct {
	Email     string `json:"email" yaml:"email"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}
