package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
)

type stubTasks struct {
	mu    gosync.Mutex
	calls int
	tasks []model.Task
	err   error
}

func (s *stubTasks) Refresh(context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.tasks, s.err
}

func (s *stubTasks) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubGoals struct {
	goals []model.Goal
	err   error
}

func (s *stubGoals) Refresh(context.Context) ([]model.Goal, error) {
	return s.goals, s.err
}

type stubSession struct {
	mu         gosync.Mutex
	terminated bool
}

func (s *stubSession) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	return nil
}

func (s *stubSession) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// next runs cmd with a deadline so a broken poller fails instead of hanging.
func next(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poller result")
		return nil
	}
}

func TestPollerInitialRefresh(t *testing.T) {
	tasks := &stubTasks{tasks: []model.Task{{ID: 1, Title: "Gym"}}}
	goals := &stubGoals{goals: []model.Goal{{ID: 1, Title: "Other"}}}
	p := New(tasks, goals, &stubSession{}, time.Hour, nil)
	defer p.Stop()

	first := next(t, p.Start())
	second := next(t, p.WaitForNextResult())

	got := map[Feed]SyncResultMsg{}
	for _, msg := range []tea.Msg{first, second} {
		res, ok := msg.(SyncResultMsg)
		require.True(t, ok, "unexpected %T", msg)
		got[res.Feed] = res
	}
	assert.Len(t, got[FeedTasks].Tasks, 1)
	assert.Len(t, got[FeedGoals].Goals, 1)
	assert.NoError(t, got[FeedTasks].Error)

	for _, st := range p.Statuses() {
		assert.Equal(t, SyncIdle, st.State)
		assert.False(t, st.LastSync.IsZero())
	}
}

func TestPollerStartTwice(t *testing.T) {
	p := New(&stubTasks{}, &stubGoals{}, nil, time.Hour, nil)
	defer p.Stop()

	require.NotNil(t, p.Start())
	assert.Nil(t, p.Start())
}

func TestPollerRefreshOnDemand(t *testing.T) {
	tasks := &stubTasks{}
	p := New(tasks, &stubGoals{}, nil, time.Hour, nil)
	defer p.Stop()

	next(t, p.Start())
	next(t, p.WaitForNextResult())

	p.Refresh(FeedTasks)
	msg := next(t, p.WaitForNextResult())
	res, ok := msg.(SyncResultMsg)
	require.True(t, ok)
	assert.Equal(t, FeedTasks, res.Feed)
	assert.Equal(t, 2, tasks.count())
}

func TestPollerReportsFailure(t *testing.T) {
	boom := errors.New("connection refused")
	tasks := &stubTasks{tasks: []model.Task{{ID: 1}}, err: boom}
	p := New(tasks, &stubGoals{}, nil, time.Hour, nil)
	defer p.Stop()

	var failed SyncResultMsg
	for _, msg := range []tea.Msg{next(t, p.Start()), next(t, p.WaitForNextResult())} {
		if res, ok := msg.(SyncResultMsg); ok && res.Feed == FeedTasks {
			failed = res
		}
	}
	assert.ErrorIs(t, failed.Error, boom)
	assert.Len(t, failed.Tasks, 1, "stale rows travel with the error")
}

func TestPollerAuthErrorTerminatesSession(t *testing.T) {
	session := &stubSession{}
	goals := &stubGoals{err: &api.AuthError{Method: "GET", Path: "/goals/", Err: errors.New("token expired")}}
	p := New(&stubTasks{}, goals, session, time.Hour, nil)
	defer p.Stop()

	var authMsg *AuthErrorMsg
	for _, msg := range []tea.Msg{next(t, p.Start()), next(t, p.WaitForNextResult())} {
		if m, ok := msg.(AuthErrorMsg); ok {
			authMsg = &m
		}
	}
	require.NotNil(t, authMsg)
	assert.Contains(t, authMsg.Message, "session expired")
	assert.True(t, session.done())
}

func TestWaitReturnsNilAfterStop(t *testing.T) {
	p := New(&stubTasks{}, &stubGoals{}, nil, time.Hour, nil)
	p.running = true
	p.Stop()

	assert.Nil(t, next(t, p.WaitForNextResult()))
}
