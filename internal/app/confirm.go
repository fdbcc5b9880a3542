package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

type confirmKind int

const (
	confirmDeleteTask confirmKind = iota
	confirmClearDone
	confirmClearCalendar
)

// pendingAction is the destructive action waiting for a yes.
type pendingAction struct {
	kind  confirmKind
	ids   []int64
	label string
}

// confirmBindings is heap-allocated so the huh field pointer survives
// bubbletea's value copies.
type confirmBindings struct {
	ok bool
}

func (p pendingAction) title() string {
	switch p.kind {
	case confirmClearDone:
		return fmt.Sprintf("Delete %s?", p.label)
	case confirmClearCalendar:
		return fmt.Sprintf("Move %d tasks of %s to the inbox?", len(p.ids), p.label)
	default:
		return fmt.Sprintf("Delete task %q?", p.label)
	}
}

func (p pendingAction) description() string {
	if p.kind == confirmClearCalendar {
		return "Their dates and times are cleared."
	}
	return "This cannot be undone."
}

// startConfirm opens the confirmation dialog for p.
func (m *Model) startConfirm(p pendingAction) tea.Cmd {
	if len(p.ids) == 0 {
		return nil
	}
	if m.currentView != ViewConfirm {
		m.switchTo(ViewConfirm)
	}
	m.pending = p
	m.cb.ok = false
	m.confirmForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(p.title()).
				Description(p.description()).
				Affirmative("Yes").
				Negative("Cancel").
				Value(&m.cb.ok),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.confirmForm.Init()
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.confirmForm == nil {
		m.currentView = m.previousView
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		cmd := m.resolveConfirm(m.cb.ok)
		return m, cmd
	case huh.StateAborted:
		cmd := m.resolveConfirm(false)
		return m, cmd
	}
	return m, cmd
}

// resolveConfirm closes the dialog and runs the pending action when ok.
func (m *Model) resolveConfirm(ok bool) tea.Cmd {
	p := m.pending
	m.pending = pendingAction{}
	m.confirmForm = nil
	m.currentView = m.previousView
	if m.currentView == ViewConfirm {
		m.currentView = ViewList
	}
	if !ok {
		return nil
	}

	switch p.kind {
	case confirmClearCalendar:
		return m.unscheduleTasks(p.ids)
	default:
		return m.deleteTasks(p.ids)
	}
}

func (m Model) viewConfirm() string {
	if m.confirmForm == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
}

func (m Model) formWidth() int {
	w := m.layout.ContentWidth() - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
