package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/store"
)

// GoalAPI is the subset of the API client the goal service needs.
type GoalAPI interface {
	ListGoals(ctx context.Context) ([]model.Goal, error)
	GetGoal(ctx context.Context, id int64) (*model.Goal, error)
	CreateGoal(ctx context.Context, req api.CreateGoalRequest) (*model.Goal, error)
	UpdateGoal(ctx context.Context, req api.UpdateGoalRequest) (*model.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
}

// GoalInput is the editable part of a goal.
type GoalInput struct {
	Title        string `validate:"min=3,max=256"`
	Color        string `validate:"omitempty,hexcolor"`
	CategoryType string `validate:"oneof=growth maintenance other"`
}

// GoalService manages goals.
type GoalService struct {
	api      GoalAPI
	cache    store.Cache
	validate *validator.Validate
	logger   *slog.Logger
	maxAge   time.Duration
	now      func() time.Time
}

// NewGoalService creates a GoalService.
func NewGoalService(client GoalAPI, cache store.Cache, maxAge time.Duration, logger *slog.Logger) *GoalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoalService{
		api:      client,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// List returns goals, refreshing the cache when it is stale. On a failed
// fetch the cached goals come back with the error.
func (s *GoalService) List(ctx context.Context, includeArchived bool) ([]model.Goal, error) {
	if s.maxAge > 0 {
		stale, err := s.cache.IsStale(ctx, store.GoalsKey, s.maxAge, s.now())
		if err == nil && !stale {
			return s.cache.GetGoals(ctx, includeArchived)
		}
	}

	goals, err := s.api.ListGoals(ctx)
	if err != nil {
		cached, cacheErr := s.cache.GetGoals(ctx, includeArchived)
		if cacheErr != nil {
			return nil, fmt.Errorf("listing goals: %w", err)
		}
		return cached, fmt.Errorf("listing goals: %w", err)
	}

	if err := s.cache.ReplaceGoals(ctx, goals); err != nil {
		s.logger.Warn("failed on caching goals", "error", err)
	}
	return s.cache.GetGoals(ctx, includeArchived)
}

// Refresh refetches every goal, archived ones included.
func (s *GoalService) Refresh(ctx context.Context) ([]model.Goal, error) {
	if err := s.cache.InvalidateGoals(ctx); err != nil {
		s.logger.Warn("failed on invalidating goals", "error", err)
	}
	return s.List(ctx, true)
}

// Get returns a goal from the cache, fetching it when missing.
func (s *GoalService) Get(ctx context.Context, id int64) (*model.Goal, error) {
	goal, err := s.cache.GetGoalByID(ctx, id)
	if err == nil {
		return goal, nil
	}
	goal, err = s.api.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching goal %d: %w", id, err)
	}
	if err := s.cache.UpsertGoals(ctx, []model.Goal{*goal}); err != nil {
		s.logger.Warn("failed on caching goal", "id", id, "error", err)
	}
	return goal, nil
}

// Create validates and creates a goal.
func (s *GoalService) Create(ctx context.Context, in GoalInput) (*model.Goal, error) {
	in = normalizeGoal(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	goal, err := s.api.CreateGoal(ctx, api.CreateGoalRequest{
		Title:        in.Title,
		Color:        in.Color,
		CategoryType: in.CategoryType,
	})
	if err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}
	s.save(ctx, goal)
	return goal, nil
}

// Update replaces the editable fields of a goal. Renaming a protected goal
// is refused.
func (s *GoalService) Update(ctx context.Context, id int64, in GoalInput) (*model.Goal, error) {
	in = normalizeGoal(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsProtected() && in.Title != current.Title {
		return nil, model.NewValidationError("title", "%q is a default goal and cannot be renamed", current.Title)
	}

	return s.send(ctx, api.UpdateGoalRequest{
		ID:           id,
		Title:        in.Title,
		Color:        in.Color,
		CategoryType: in.CategoryType,
		IsArchived:   current.IsArchived,
	})
}

// Archive hides a goal from the default goal list.
func (s *GoalService) Archive(ctx context.Context, id int64) (*model.Goal, error) {
	return s.setArchived(ctx, id, true)
}

// Restore brings an archived goal back.
func (s *GoalService) Restore(ctx context.Context, id int64) (*model.Goal, error) {
	return s.setArchived(ctx, id, false)
}

func (s *GoalService) setArchived(ctx context.Context, id int64, archived bool) (*model.Goal, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if archived && current.IsProtected() {
		return nil, model.NewValidationError("goal", "%q is a default goal and cannot be archived", current.Title)
	}
	return s.send(ctx, api.UpdateGoalRequest{
		ID:           id,
		Title:        current.Title,
		Color:        current.Color,
		CategoryType: current.CategoryType,
		IsArchived:   archived,
	})
}

// Delete removes a goal. The default goals "Other" and "Routine" are never
// deleted and no request is made for them.
func (s *GoalService) Delete(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.IsProtected() {
		return model.NewValidationError("goal", "%q is a default goal and cannot be deleted", current.Title)
	}

	if err := s.api.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("deleting goal %d: %w", id, err)
	}
	if err := s.cache.DeleteGoal(ctx, id); err != nil {
		s.logger.Warn("failed on deleting cached goal", "id", id, "error", err)
	}
	if err := s.cache.InvalidateGoals(ctx); err != nil {
		s.logger.Warn("failed on invalidating goals", "error", err)
	}
	if err := s.cache.InvalidateTasks(ctx); err != nil {
		s.logger.Warn("failed on invalidating task lists", "error", err)
	}
	return nil
}

func (s *GoalService) send(ctx context.Context, req api.UpdateGoalRequest) (*model.Goal, error) {
	goal, err := s.api.UpdateGoal(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("updating goal %d: %w", req.ID, err)
	}
	if goal.ID == 0 {
		goal.ID = req.ID
	}
	s.save(ctx, goal)
	return goal, nil
}

func (s *GoalService) save(ctx context.Context, goal *model.Goal) {
	if err := s.cache.UpsertGoals(ctx, []model.Goal{*goal}); err != nil {
		s.logger.Warn("failed on caching goal", "id", goal.ID, "error", err)
	}
	if err := s.cache.InvalidateGoals(ctx); err != nil {
		s.logger.Warn("failed on invalidating goals", "error", err)
	}
}

func normalizeGoal(in GoalInput) GoalInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Color = strings.TrimSpace(in.Color)
	in.CategoryType = strings.ToLower(strings.TrimSpace(in.CategoryType))
	if in.CategoryType == "" {
		in.CategoryType = model.CategoryOther
	}
	return in
}
