package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/miledo/internal/ui/toast"
)

const signedOutHint = "Signed out, run `miledo token set` to sign in"

// loggedOutMsg is sent after the stored session was terminated.
type loggedOutMsg struct {
	err error
}

// logout drops the stored tokens. Without a session there is nothing to
// terminate and the UI only forgets its signed-in state.
func (m Model) logout() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if session == nil {
			return loggedOutMsg{}
		}
		return loggedOutMsg{err: session.Terminate()}
	}
}

func (m *Model) handleLoggedOut(msg loggedOutMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("failed on terminating session", "error", msg.err)
		return m.toast.Show(toast.FromError("sign out", msg.err))
	}
	if m.poller != nil {
		m.poller.Stop()
	}
	m.state.Logout()
	m.authMessage = signedOutHint
	m.logger.Info("signed out")
	return m.toast.Show(toast.Info("Signed out"))
}
