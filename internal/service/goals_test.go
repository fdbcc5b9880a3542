package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/service"
)

func seedGoals(f *fixture) {
	f.api.AddGoal(model.Goal{ID: 1, Title: "Other", CategoryType: model.CategoryOther})
	f.api.AddGoal(model.Goal{ID: 2, Title: "Routine", CategoryType: model.CategoryMaintenance})
	f.api.AddGoal(model.Goal{ID: 3, Title: "Health", Color: "#22c55e", CategoryType: model.CategoryGrowth})
}

func TestProtectedGoalsCannotBeDeleted(t *testing.T) {
	f := newFixture(t, 0)
	seedGoals(f)
	_, err := f.goals.List(context.Background(), true)
	require.NoError(t, err)

	for _, id := range []int64{1, 2} {
		err := f.goals.Delete(context.Background(), id)
		assert.True(t, model.IsValidation(err), "goal %d", id)
	}
	assert.Zero(t, f.api.Calls("DELETE /api/v1/goals/{id}"))

	_, ok := f.api.Goal(1)
	assert.True(t, ok)
}

func TestDeleteGoal(t *testing.T) {
	f := newFixture(t, 0)
	seedGoals(f)
	_, err := f.goals.List(context.Background(), true)
	require.NoError(t, err)

	require.NoError(t, f.goals.Delete(context.Background(), 3))

	goals, err := f.goals.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, goals, 2)
}

func TestCreateGoal(t *testing.T) {
	f := newFixture(t, 0)

	g, err := f.goals.Create(context.Background(), service.GoalInput{Title: " Learn Go ", Color: "#0ea5e9", CategoryType: "Growth"})
	require.NoError(t, err)
	assert.Equal(t, "Learn Go", g.Title)
	assert.Equal(t, model.CategoryGrowth, g.CategoryType)

	cached, err := f.cache.GetGoalByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Learn Go", cached.Title)
}

func TestCreateGoalValidation(t *testing.T) {
	f := newFixture(t, 0)

	tests := []service.GoalInput{
		{Title: "Go"},
		{Title: "Valid title", Color: "blue"},
		{Title: "Valid title", CategoryType: "hobby"},
	}
	for _, in := range tests {
		_, err := f.goals.Create(context.Background(), in)
		assert.True(t, model.IsValidation(err), "input %+v", in)
	}
	assert.Zero(t, f.api.TotalCalls())
}

func TestArchiveAndRestore(t *testing.T) {
	f := newFixture(t, 0)
	seedGoals(f)

	g, err := f.goals.Archive(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, g.IsArchived)

	active, err := f.goals.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	g, err = f.goals.Restore(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, g.IsArchived)

	_, err = f.goals.Archive(context.Background(), 1)
	assert.True(t, model.IsValidation(err))
}

func TestRenameProtectedGoalIsRefused(t *testing.T) {
	f := newFixture(t, 0)
	seedGoals(f)

	_, err := f.goals.Update(context.Background(), 2, service.GoalInput{Title: "Habits", CategoryType: "maintenance"})
	assert.True(t, model.IsValidation(err))

	g, err := f.goals.Update(context.Background(), 2, service.GoalInput{Title: "Routine", Color: "#f97316", CategoryType: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "#f97316", g.Color)
}
