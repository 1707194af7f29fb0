// Package config provides configuration management for inspo.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Default values.
const (
	DefaultPort                  = 8000
	DefaultAssistantBin          = "claude"
	DefaultGenerationTimeoutSecs = 300
	DefaultContextIdeas          = 20
	DefaultLogRetentionDays      = 90
	DefaultScheduleHour          = 10
	DefaultMaxConns              = 4
)

// Config holds all runtime settings. JSON tags double as the settings.json
// keys and the environment variable names that override them.
type Config struct {
	Port                  int    `json:"INSPO_PORT"`
	DBPath                string `json:"INSPO_DB_PATH"`
	AssistantBin          string `json:"INSPO_ASSISTANT_BIN"`
	ChatAssistantBin      string `json:"INSPO_CHAT_ASSISTANT_BIN"`
	MethodologyPath       string `json:"INSPO_METHODOLOGY_PATH"`
	GenerateCmd           string `json:"INSPO_GENERATE_CMD"`
	GenerationTimeoutSecs int    `json:"INSPO_GENERATION_TIMEOUT_SECS"`
	ContextIdeas          int    `json:"INSPO_CONTEXT_IDEAS"`
	LogRetentionDays      int    `json:"INSPO_LOG_RETENTION_DAYS"`
	ScheduleHour          int    `json:"INSPO_SCHEDULE_HOUR"`
	MaxConns              int    `json:"INSPO_MAX_CONNS"`
}

var (
	cached   *Config
	cachedMu sync.Mutex
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                  DefaultPort,
		DBPath:                DBPath(),
		AssistantBin:          DefaultAssistantBin,
		ChatAssistantBin:      DefaultAssistantBin,
		MethodologyPath:       filepath.Join(DataDir(), "methodology.md"),
		GenerateCmd:           "",
		GenerationTimeoutSecs: DefaultGenerationTimeoutSecs,
		ContextIdeas:          DefaultContextIdeas,
		LogRetentionDays:      DefaultLogRetentionDays,
		ScheduleHour:          DefaultScheduleHour,
		MaxConns:              DefaultMaxConns,
	}
}

// Load reads settings.json, applies environment overrides, and returns the
// result. A missing or malformed settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			log.Warn().Err(jsonErr).Str("path", SettingsPath()).
				Msg("Invalid settings file, using defaults")
			cfg = Default()
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Get returns the cached configuration, loading it on first use.
func Get() *Config {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if cached == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		cached = cfg
	}
	return cached
}

// Reset clears the cached configuration. Used by tests.
func Reset() {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	cached = nil
}

// DataDir returns the inspo data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".inspo")
}

// DBPath returns the default database file path.
func DBPath() string {
	return filepath.Join(DataDir(), "inspo.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// applyEnvOverrides lets environment variables win over file settings.
func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Port, "INSPO_PORT")
	overrideStr(&cfg.DBPath, "INSPO_DB_PATH")
	overrideStr(&cfg.AssistantBin, "INSPO_ASSISTANT_BIN")
	overrideStr(&cfg.ChatAssistantBin, "INSPO_CHAT_ASSISTANT_BIN")
	overrideStr(&cfg.MethodologyPath, "INSPO_METHODOLOGY_PATH")
	overrideStr(&cfg.GenerateCmd, "INSPO_GENERATE_CMD")
	overrideInt(&cfg.GenerationTimeoutSecs, "INSPO_GENERATION_TIMEOUT_SECS")
	overrideInt(&cfg.ContextIdeas, "INSPO_CONTEXT_IDEAS")
	overrideInt(&cfg.LogRetentionDays, "INSPO_LOG_RETENTION_DAYS")
	overrideInt(&cfg.ScheduleHour, "INSPO_SCHEDULE_HOUR")
	overrideInt(&cfg.MaxConns, "INSPO_MAX_CONNS")
}

func overrideStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric setting")
		return
	}
	*dst = n
}
