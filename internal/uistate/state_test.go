package uistate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/uistate"
	"github.com/nhle/miledo/tests/testutil"
)

func TestDefaults(t *testing.T) {
	s := uistate.New(nil)

	assert.Equal(t, uistate.ThemeLight, s.Theme)
	assert.True(t, s.SidebarOpen)
	assert.Equal(t, uistate.CalendarMonth, s.CalendarView)
	assert.Equal(t, uistate.ListInbox, s.ListView)
	assert.NoError(t, s.Load(context.Background()))
}

func TestPersistedFieldsSurviveReload(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)

	s := uistate.New(kv)
	require.NoError(t, s.ToggleTheme(ctx))
	require.NoError(t, s.ToggleSidebar(ctx))
	require.NoError(t, s.SetCalendarView(ctx, uistate.CalendarWeek))
	require.NoError(t, s.SetListView(ctx, uistate.ListGoal, 7))
	s.SelectTask(42)

	reloaded := uistate.New(kv)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, uistate.ThemeDark, reloaded.Theme)
	assert.False(t, reloaded.SidebarOpen)
	assert.Equal(t, uistate.CalendarWeek, reloaded.CalendarView)
	assert.Equal(t, uistate.ListGoal, reloaded.ListView)
	assert.Equal(t, int64(7), reloaded.ListGoalID)
	assert.Zero(t, reloaded.SelectedTaskID, "selection is not persisted")
}

func TestLoadIgnoresUnknownValues(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	require.NoError(t, kv.SetPref(ctx, "ui.theme", "solarized"))
	require.NoError(t, kv.SetPref(ctx, "ui.calendar_view", "year"))
	require.NoError(t, kv.SetPref(ctx, "ui.list_view", "goal"))

	s := uistate.New(kv)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, uistate.ThemeLight, s.Theme)
	assert.Equal(t, uistate.CalendarMonth, s.CalendarView)
	assert.Equal(t, uistate.ListInbox, s.ListView, "goal view without a goal falls back")
}

func TestSetListViewValidation(t *testing.T) {
	s := uistate.New(nil)
	ctx := context.Background()

	assert.Error(t, s.SetListView(ctx, "archive", 0))
	assert.Error(t, s.SetListView(ctx, uistate.ListGoal, 0))
	require.NoError(t, s.SetListView(ctx, uistate.ListToday, 9))
	assert.Zero(t, s.ListGoalID)
	assert.Error(t, s.SetCalendarView(ctx, "day"))
}

func TestOpenContextMenuClamps(t *testing.T) {
	tests := []struct {
		name   string
		x, y   int
		wantX  int
		wantY  int
		vw, vh int
	}{
		{"fits", 10, 5, 10, 5, 80, 24},
		{"right edge", 70, 5, 80 - uistate.MenuWidth - uistate.MenuMargin, 5, 80, 24},
		{"bottom edge", 10, 20, 10, 24 - uistate.MenuHeight - uistate.MenuMargin, 80, 24},
		{"tiny viewport", 5, 5, 0, 0, 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := uistate.New(nil)
			s.OpenContextMenu(tt.x, tt.y, uistate.MenuTask, 3, "", tt.vw, tt.vh)
			assert.True(t, s.Menu.Open)
			assert.Equal(t, tt.wantX, s.Menu.X)
			assert.Equal(t, tt.wantY, s.Menu.Y)
			assert.Equal(t, int64(3), s.Menu.TargetID)
		})
	}
}

func TestLogoutClearsSessionState(t *testing.T) {
	s := uistate.New(nil)
	s.Authenticated = true
	s.Theme = uistate.ThemeDark
	s.SelectTask(5)
	s.OpenContextMenu(1, 1, uistate.MenuList, 2, "Health", 80, 24)

	s.Logout()

	assert.False(t, s.Authenticated)
	assert.Zero(t, s.SelectedTaskID)
	assert.False(t, s.Menu.Open)
	assert.Equal(t, uistate.ThemeDark, s.Theme)
}
