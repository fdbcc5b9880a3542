package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/miledo/internal/model"
)

// UpdateTaskRequest is the full body of PATCH /tasks/{id}.
type UpdateTaskRequest struct {
	GoalID               int32  `json:"goal_id"`
	Title                string `json:"title"`
	IsDone               bool   `json:"is_done"`
	ScheduledDateTime    string `json:"scheduled_date_time"`
	DurationMinutes      int32  `json:"duration_minutes"`
	ScheduledEndDateTime string `json:"scheduled_end_date_time,omitempty"`
}

// ListTasks returns every task of the current user.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	return c.listTasks(ctx, "/tasks/")
}

// ListInbox returns the tasks that have no scheduled date.
func (c *Client) ListInbox(ctx context.Context) ([]model.Task, error) {
	return c.listTasks(ctx, "/tasks/inbox")
}

// ListPeriod returns tasks scheduled between after and before (YYYY-MM-DD).
func (c *Client) ListPeriod(ctx context.Context, after, before string) ([]model.Task, error) {
	q := url.Values{}
	q.Set("after_date", after)
	q.Set("before_date", before)
	return c.listTasks(ctx, "/tasks/period?"+q.Encode())
}

// ListGoalTasks returns the tasks owned by a goal.
func (c *Client) ListGoalTasks(ctx context.Context, goalID int64) ([]model.Task, error) {
	return c.listTasks(ctx, fmt.Sprintf("/goals/%d/tasks", goalID))
}

func (c *Client) listTasks(ctx context.Context, path string) ([]model.Task, error) {
	var resp ListTasksResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.TaskData == nil {
		return []model.Task{}, nil
	}
	return resp.TaskData, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := c.get(ctx, fmt.Sprintf("/tasks/%d", id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task and returns it as stored by the server.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.post(ctx, "/tasks/", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask replaces every editable field of a task.
func (c *Client) UpdateTask(ctx context.Context, id int64, req UpdateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.patch(ctx, fmt.Sprintf("/tasks/%d", id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task done.
func (c *Client) CompleteTask(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := c.patch(ctx, fmt.Sprintf("/tasks/%d/complete", id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/tasks/%d", id))
}

// AnalyzeToday returns today's completion stats.
func (c *Client) AnalyzeToday(ctx context.Context) (*model.TaskStats, error) {
	var stats model.TaskStats
	if err := c.get(ctx, "/tasks/analyze", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
