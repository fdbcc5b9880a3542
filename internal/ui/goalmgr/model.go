package goalmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/miledo/internal/keys"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/service"
	"github.com/nhle/miledo/internal/theme"
	"github.com/nhle/miledo/internal/ui/toast"
)

// Manager is the goal service used by the view.
type Manager interface {
	List(ctx context.Context, includeArchived bool) ([]model.Goal, error)
	Create(ctx context.Context, in service.GoalInput) (*model.Goal, error)
	Update(ctx context.Context, id int64, in service.GoalInput) (*model.Goal, error)
	Archive(ctx context.Context, id int64) (*model.Goal, error)
	Restore(ctx context.Context, id int64) (*model.Goal, error)
	Delete(ctx context.Context, id int64) error
}

// GoalListCloseMsg signals the parent to close the goal view.
type GoalListCloseMsg struct{}

// GoalChangedMsg signals that goals were created, updated or deleted.
type GoalChangedMsg struct {
	Text string
}

// GoalSelectedMsg asks the parent to show the tasks of a goal.
type GoalSelectedMsg struct {
	GoalID int64
	Title  string
}

type goalMode int

const (
	modeList goalMode = iota
	modeForm
	modeConfirmDelete
)

const defaultColor = "#5B9BD5"

type formBindings struct {
	title    string
	color    string
	category string
	confirm  bool
}

type goalsLoadedMsg struct {
	goals []model.Goal
	err   error
}

type goalSavedMsg struct {
	text string
	err  error
}

// Model is the Bubble Tea model for goal management.
type Model struct {
	mode        goalMode
	manager     Manager
	keys        *keys.KeyMap
	goals       []model.Goal
	selectedIdx int
	editingID   int64
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a new goal manager model.
func New(mgr Manager, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:    modeList,
		manager: mgr,
		keys:    k,
		fb:      &formBindings{},
		width:   width, height: height,
	}
}

// Init loads goals, archived ones included.
func (m Model) Init() tea.Cmd {
	return m.loadGoals()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case goalsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = toast.FromError("load goals", msg.err).Text
		}
		if msg.goals != nil || msg.err == nil {
			m.goals = msg.goals
		}
		if m.selectedIdx >= len(m.goals) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.goals) - 1
		}
		return m, nil

	case goalSavedMsg:
		m.mode = modeList
		if msg.err != nil {
			m.statusMsg = toast.FromError("save goal", msg.err).Text
			return m, m.loadGoals()
		}
		m.statusMsg = msg.text
		text := msg.text
		return m, tea.Batch(m.loadGoals(), func() tea.Msg { return GoalChangedMsg{Text: text} })

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return GoalListCloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.goals) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.goals)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.goals) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.goals) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		g, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return GoalSelectedMsg{GoalID: g.ID, Title: g.Title} }

	case msg.String() == "n":
		m.isNew = true
		m.editingID = 0
		m.fb.title = ""
		m.fb.color = defaultColor
		m.fb.category = model.CategoryGrowth
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "e":
		g, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.isNew = false
		m.editingID = g.ID
		m.fb.title = g.Title
		m.fb.color = g.Color
		m.fb.category = g.CategoryType
		if m.fb.category == "" {
			m.fb.category = model.CategoryOther
		}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "a":
		g, ok := m.selected()
		if !ok {
			return m, nil
		}
		if g.IsProtected() && !g.IsArchived {
			m.statusMsg = fmt.Sprintf("%q is a default goal and cannot be archived", g.Title)
			return m, nil
		}
		return m, m.toggleArchive(g)

	case msg.String() == "d":
		g, ok := m.selected()
		if !ok {
			return m, nil
		}
		if g.IsProtected() {
			m.statusMsg = fmt.Sprintf("%q is a default goal and cannot be deleted", g.Title)
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm(g)
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) selected() (model.Goal, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.goals) {
		return model.Goal{}, false
	}
	return m.goals[m.selectedIdx], true
}

func (m Model) buildForm() *huh.Form {
	title := huh.NewInput().
		Title("Title").
		Placeholder("Goal title").
		CharLimit(256).
		Value(&m.fb.title).
		Validate(func(s string) error {
			if len([]rune(strings.TrimSpace(s))) < 3 {
				return fmt.Errorf("title must be at least 3 characters")
			}
			return nil
		})

	return huh.NewForm(
		huh.NewGroup(
			title,
			huh.NewInput().
				Title("Color").
				Placeholder(defaultColor).
				Value(&m.fb.color),
			huh.NewSelect[string]().
				Title("Category").
				Options(
					huh.NewOption("Growth", model.CategoryGrowth),
					huh.NewOption("Maintenance", model.CategoryMaintenance),
					huh.NewOption("Other", model.CategoryOther),
				).
				Value(&m.fb.category),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm(g model.Goal) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete goal %q?", g.Title)).
				Description("This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.saveGoal()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if g, ok := m.selected(); ok && m.fb.confirm {
			return m, m.deleteGoal(g)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the goal manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Goals"))
	b.WriteString("\n\n")

	if len(m.goals) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No goals yet. Press 'n' to create one."))
	} else {
		for i, g := range m.goals {
			label := fmt.Sprintf("%s  %s  %s",
				theme.GoalStyle(g.Color).Render("●"),
				g.Title,
				theme.CategoryStyle(g.CategoryType).Render(g.CategoryType),
			)
			if g.IsProtected() {
				label += " (default)"
			}
			if g.IsArchived {
				label += " (archived)"
			}

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"enter tasks | n new | e edit | a archive/restore | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) loadGoals() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		goals, err := mgr.List(context.Background(), true)
		return goalsLoadedMsg{goals: goals, err: err}
	}
}

func (m Model) saveGoal() tea.Cmd {
	mgr := m.manager
	in := service.GoalInput{
		Title:        m.fb.title,
		Color:        m.fb.color,
		CategoryType: m.fb.category,
	}
	editID := m.editingID
	isNew := m.isNew
	return func() tea.Msg {
		if isNew {
			_, err := mgr.Create(context.Background(), in)
			return goalSavedMsg{text: "Goal created", err: err}
		}
		_, err := mgr.Update(context.Background(), editID, in)
		return goalSavedMsg{text: "Goal updated", err: err}
	}
}

func (m Model) deleteGoal(g model.Goal) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		err := mgr.Delete(context.Background(), g.ID)
		return goalSavedMsg{text: "Goal deleted", err: err}
	}
}

func (m Model) toggleArchive(g model.Goal) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if g.IsArchived {
			_, err := mgr.Restore(context.Background(), g.ID)
			return goalSavedMsg{text: "Goal restored", err: err}
		}
		_, err := mgr.Archive(context.Background(), g.ID)
		return goalSavedMsg{text: "Goal archived", err: err}
	}
}
