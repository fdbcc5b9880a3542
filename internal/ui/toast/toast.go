// Package toast renders the transient success/error line in the status bar.
package toast

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/theme"
)

// Kind is the toast flavor.
type Kind int

const (
	Success Kind = iota
	Error
)

// DefaultTTL is how long a toast stays visible.
const DefaultTTL = 4 * time.Second

// Toast is one message.
type Toast struct {
	Kind Kind
	Text string
}

// Info builds a success toast.
func Info(text string) Toast {
	return Toast{Kind: Success, Text: text}
}

// FromError turns a failed operation into a toast. Validation and lookup
// errors keep their message; transport and server errors become a generic
// line so raw responses never reach the screen.
func FromError(action string, err error) Toast {
	var vErr *model.ValidationError
	var nfErr *model.NotFoundError
	switch {
	case errors.As(err, &vErr):
		return Toast{Kind: Error, Text: vErr.Error()}
	case errors.As(err, &nfErr):
		return Toast{Kind: Error, Text: nfErr.Error() + ", refresh and try again"}
	case api.IsAuthError(err):
		return Toast{Kind: Error, Text: "Session expired, run `miledo token set`"}
	case api.IsNetworkError(err):
		return Toast{Kind: Error, Text: "Failed to " + action + ": server unreachable"}
	default:
		return Toast{Kind: Error, Text: "Failed to " + action}
	}
}

// expiredMsg clears the toast with the matching sequence number.
type expiredMsg struct{ seq int }

// Model holds the current toast.
type Model struct {
	current *Toast
	seq     int
	ttl     time.Duration
}

// New returns an empty toast model.
func New(ttl time.Duration) Model {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Model{ttl: ttl}
}

// Show replaces the current toast and schedules its expiry.
func (m *Model) Show(t Toast) tea.Cmd {
	m.seq++
	m.current = &t
	seq := m.seq
	return tea.Tick(m.ttl, func(time.Time) tea.Msg {
		return expiredMsg{seq: seq}
	})
}

// Dismiss hides the toast immediately.
func (m *Model) Dismiss() {
	m.current = nil
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool {
	return m.current != nil
}

// Current returns the showing toast.
func (m Model) Current() (Toast, bool) {
	if m.current == nil {
		return Toast{}, false
	}
	return *m.current, true
}

// Update clears the toast when its own timer fires. Timers of replaced
// toasts are ignored.
func (m Model) Update(msg tea.Msg) Model {
	if e, ok := msg.(expiredMsg); ok && e.seq == m.seq {
		m.current = nil
	}
	return m
}

// View renders the toast, or "" when none is showing.
func (m Model) View() string {
	if m.current == nil {
		return ""
	}
	if m.current.Kind == Error {
		return theme.ErrorToastStyle.Render("✗ " + m.current.Text)
	}
	return theme.SuccessToastStyle.Render("✓ " + m.current.Text)
}
