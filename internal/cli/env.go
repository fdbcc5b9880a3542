package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nhle/miledo/internal/api"
	"github.com/nhle/miledo/internal/credential"
	"github.com/nhle/miledo/internal/logging"
	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/service"
	"github.com/nhle/miledo/internal/store"
)

// env is everything a command needs to talk to the API.
type env struct {
	cfg     *model.AppConfig
	store   *store.SQLiteStore
	session *credential.Session
	tasks   *service.TaskService
	goals   *service.GoalService
	logger  *slog.Logger
	closers []io.Closer
}

func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// buildEnv is replaced in tests.
var buildEnv = openEnv

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return model.DefaultConfigPath()
}

func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openEnv wires config, cache, keyring and API client. logger may be nil,
// in which case the CLI logs to stderr.
func openEnv(logger *slog.Logger) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewStderr(cfg.Log, verbose)
	}

	db, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	vault, err := credential.OpenVault(model.ConfigDir())
	if err != nil {
		db.Close()
		return nil, err
	}
	session := credential.NewSession(vault)

	client := api.NewClient(
		cfg.API.BaseURL,
		session,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
		api.WithLogger(logger),
	)
	maxAge := time.Duration(cfg.Cache.MaxAgeSec) * time.Second

	return &env{
		cfg:     cfg,
		store:   db,
		session: session,
		tasks:   service.NewTaskService(client, db, maxAge, logger),
		goals:   service.NewGoalService(client, db, maxAge, logger),
		logger:  logger,
		closers: []io.Closer{db},
	}, nil
}

// withEnv opens the environment for the duration of fn.
func withEnv(fn func(e *env) error) error {
	e, err := buildEnv(nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			e.logger.Warn("failed on closing cache", "error", err)
		}
	}()
	return fn(e)
}
