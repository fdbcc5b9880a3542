package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/miledo/internal/app"
	"github.com/nhle/miledo/internal/credential"
	"github.com/nhle/miledo/internal/logging"
	"github.com/nhle/miledo/internal/model"
	appsync "github.com/nhle/miledo/internal/sync"
	"github.com/nhle/miledo/internal/uistate"
)

// runTUI opens the interactive planner. Logs go to the configured file
// because the terminal belongs to the UI.
func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.NewFile(cfg.Log)
	if err != nil {
		return err
	}

	e, err := buildEnv(logger)
	if err != nil {
		logCloser.Close()
		return err
	}
	e.closers = append(e.closers, logCloser)
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("failed on closing", "error", err)
		}
	}()

	state := initialState(cfg, e.store)
	if err := state.Load(cmd.Context()); err != nil {
		logger.Warn("failed on loading preferences", "error", err)
	}
	if st, err := e.session.Status(); err == nil {
		state.Authenticated = st.Source != credential.SourceNone && !st.Expired
	}

	interval := time.Duration(cfg.Display.PollIntervalSec) * time.Second
	poller := appsync.New(e.tasks, e.goals, e.session, interval, logger)
	defer poller.Stop()

	logger.Info("starting ui", "api", cfg.API.BaseURL, "authenticated", state.Authenticated)
	m := app.New(app.Deps{
		Tasks:   e.tasks,
		Goals:   e.goals,
		State:   state,
		Session: e.session,
		Poller:  poller,
		Logger:  logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// initialState seeds the UI state with the configured defaults. Stored
// preferences override them on Load.
func initialState(cfg *model.AppConfig, kv uistate.KV) *uistate.State {
	state := uistate.New(kv)
	if t := uistate.Theme(cfg.Display.Theme); t == uistate.ThemeLight || t == uistate.ThemeDark {
		state.Theme = t
	}
	switch v := uistate.ListView(cfg.Display.DefaultView); v {
	case uistate.ListInbox, uistate.ListToday, uistate.ListAll:
		state.ListView = v
	}
	return state
}
