package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
)

// Feed names a resource the poller keeps fresh.
type Feed string

const (
	FeedTasks Feed = "tasks"
	FeedGoals Feed = "goals"
)

// SyncState represents the current state of a feed refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the refresh state for a single feed.
type SyncStatus struct {
	Feed     Feed
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a refresh completes. On failure
// Tasks or Goals still carry whatever the cache held.
type SyncResultMsg struct {
	Feed  Feed
	Tasks []model.Task
	Goals []model.Goal
	Error error
}

// AuthErrorMsg is a tea.Msg sent when the API rejected the token. The
// session has already been terminated when it arrives.
type AuthErrorMsg struct {
	Message string
}

// TaskFeed refreshes the cached task list.
type TaskFeed interface {
	Refresh(ctx context.Context) ([]model.Task, error)
}

// GoalFeed refreshes the cached goal list.
type GoalFeed interface {
	Refresh(ctx context.Context) ([]model.Goal, error)
}

// Terminator ends the stored session.
type Terminator interface {
	Terminate() error
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

const defaultInterval = 120 * time.Second

// Poller refreshes tasks and goals in the background.
type Poller struct {
	tasks    TaskFeed
	goals    GoalFeed
	session  Terminator
	interval time.Duration
	logger   *slog.Logger

	statuses  map[Feed]*SyncStatus
	resultCh  chan tea.Msg
	triggerCh chan Feed
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Poller. A non-positive interval falls back to two minutes.
func New(tasks TaskFeed, goals GoalFeed, session Terminator, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		tasks:    tasks,
		goals:    goals,
		session:  session,
		interval: interval,
		logger:   logger,
		statuses: map[Feed]*SyncStatus{
			FeedTasks: {Feed: FeedTasks},
			FeedGoals: {Feed: FeedGoals},
		},
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan Feed, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that waits
// for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// RefreshAll triggers an immediate refresh of every feed.
func (p *Poller) RefreshAll() {
	p.Refresh(FeedTasks)
	p.Refresh(FeedGoals)
}

// Refresh triggers an immediate refresh of one feed.
func (p *Poller) Refresh(feed Feed) {
	select {
	case p.triggerCh <- feed:
	default:
		// Channel full; a refresh is already queued
	}
}

// Statuses returns the current state of every feed.
func (p *Poller) Statuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return []SyncStatus{*p.statuses[FeedTasks], *p.statuses[FeedGoals]}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it again after handling each SyncResultMsg or AuthErrorMsg.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(FeedGoals)
	p.fetch(FeedTasks)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetch(FeedGoals)
			p.fetch(FeedTasks)
		case feed := <-p.triggerCh:
			p.fetch(feed)
		}
	}
}

// fetch refreshes one feed and publishes the outcome.
func (p *Poller) fetch(feed Feed) {
	p.setStatus(feed, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msg := SyncResultMsg{Feed: feed}
	switch feed {
	case FeedTasks:
		msg.Tasks, msg.Error = p.tasks.Refresh(ctx)
	case FeedGoals:
		msg.Goals, msg.Error = p.goals.Refresh(ctx)
	default:
		return
	}

	if msg.Error == nil {
		p.setStatus(feed, SyncIdle, nil)
		p.send(msg)
		return
	}

	p.setStatus(feed, SyncError, msg.Error)
	if api.IsAuthError(msg.Error) {
		p.expire(msg.Error)
		return
	}

	p.logger.Warn("failed on refreshing feed", "feed", feed, "error", msg.Error)
	p.send(msg)
}

// expire ends the session after the API refused the token.
func (p *Poller) expire(cause error) {
	p.logger.Warn("session rejected by api", "error", cause)
	if p.session != nil {
		if err := p.session.Terminate(); err != nil {
			p.logger.Error("failed on terminating session", "error", err)
		}
	}
	p.send(AuthErrorMsg{Message: fmt.Sprintf("session expired: %v", cause)})
}

func (p *Poller) setStatus(feed Feed, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[feed]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle {
		status.LastSync = time.Now()
	}
}

// send publishes msg without blocking the poller.
func (p *Poller) send(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	default:
		p.logger.Debug("dropping poller result, channel full")
	}
}
