package api

import (
	"context"
	"fmt"

	"github.com/nhle/miledo/internal/model"
)

// ListGoals returns every goal of the current user, archived included.
func (c *Client) ListGoals(ctx context.Context) ([]model.Goal, error) {
	var resp ListGoalsResponse
	if err := c.get(ctx, "/goals/", &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []model.Goal{}, nil
	}
	return resp.Data, nil
}

// GetGoal fetches a single goal.
func (c *Client) GetGoal(ctx context.Context, id int64) (*model.Goal, error) {
	var goal model.Goal
	if err := c.get(ctx, fmt.Sprintf("/goals/%d", id), &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, req CreateGoalRequest) (*model.Goal, error) {
	var goal model.Goal
	if err := c.post(ctx, "/goals/", req, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// UpdateGoal replaces every editable field of a goal. The goal id travels
// in the body.
func (c *Client) UpdateGoal(ctx context.Context, req UpdateGoalRequest) (*model.Goal, error) {
	var goal model.Goal
	if err := c.patch(ctx, "/goals/", req, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// DeleteGoal removes a goal.
func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	return c.delete(ctx, fmt.Sprintf("/goals/%d", id))
}
