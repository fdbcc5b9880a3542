package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig holds the connection settings for the mile-do REST API.
type APIConfig struct {
	// BaseURL is the API root including the version prefix
	// (e.g., http://localhost:8080/api/v1).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP exchange.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// CacheConfig holds settings for the local task/goal cache.
type CacheConfig struct {
	// Path is the SQLite database file. ":memory:" keeps the cache in RAM.
	Path string `mapstructure:"path" yaml:"path"`

	// MaxAgeSec is how long cached lists are served before a refetch.
	MaxAgeSec int `mapstructure:"max_age_sec" yaml:"max_age_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	DefaultView     string `mapstructure:"default_view" yaml:"default_view"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// LogConfig controls the slog logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

const (
	defaultBaseURL    = "http://localhost:8080/api/v1"
	defaultTimeoutSec = 30
	defaultMaxAgeSec  = 60
	defaultTheme      = "light"
	defaultView       = "inbox"
	defaultPollSec    = 120
	defaultLogLevel   = "info"
	envPrefix         = "MILEDO"
	configDirName     = "miledo"
	configFileName    = "config.yaml"
	cacheFileName     = "cache.db"
	logFileName       = "miledo.log"
)

// ConfigDir returns ~/.config/miledo, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", configDirName)
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/miledo/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    defaultBaseURL,
			TimeoutSec: defaultTimeoutSec,
		},
		Cache: CacheConfig{
			Path:      filepath.Join(ConfigDir(), cacheFileName),
			MaxAgeSec: defaultMaxAgeSec,
		},
		Display: DisplayConfig{
			Theme:           defaultTheme,
			DefaultView:     defaultView,
			PollIntervalSec: defaultPollSec,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
			File:  filepath.Join(ConfigDir(), logFileName),
		},
	}
}

func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout_sec", cfg.API.TimeoutSec)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.max_age_sec", cfg.Cache.MaxAgeSec)
	v.SetDefault("display.theme", cfg.Display.Theme)
	v.SetDefault("display.default_view", cfg.Display.DefaultView)
	v.SetDefault("display.poll_interval_sec", cfg.Display.PollIntervalSec)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with MILEDO_ override file values
// (e.g., MILEDO_API_BASE_URL). If the file does not exist, the defaults
// plus any environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := defaultAppConfig()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = defaultTimeoutSec
	}
	if cfg.Display.PollIntervalSec <= 0 {
		cfg.Display.PollIntervalSec = defaultPollSec
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("cache", cfg.Cache)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
