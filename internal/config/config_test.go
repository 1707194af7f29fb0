// Package config provides configuration management for inspo.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
	Reset()
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	Reset()
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultAssistantBin, cfg.AssistantBin)
	s.Equal(DefaultAssistantBin, cfg.ChatAssistantBin)
	s.Equal(DefaultGenerationTimeoutSecs, cfg.GenerationTimeoutSecs)
	s.Equal(DefaultContextIdeas, cfg.ContextIdeas)
	s.Equal(DefaultLogRetentionDays, cfg.LogRetentionDays)
	s.Equal(DefaultScheduleHour, cfg.ScheduleHour)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Contains(cfg.MethodologyPath, "methodology.md")
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	s.Contains(DataDir(), ".inspo")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	s.Contains(DBPath(), "inspo.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	s.Contains(SettingsPath(), "settings.json")
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	s.NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.NoError(err)
	s.True(info.IsDir())

	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// Second call is a no-op
	s.NoError(EnsureAll())
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settingsJSON  string
		expectedPort  int
		expectedBin   string
		expectedIdeas int
	}{
		{
			name:          "no settings file",
			settingsJSON:  "",
			expectedPort:  DefaultPort,
			expectedBin:   DefaultAssistantBin,
			expectedIdeas: DefaultContextIdeas,
		},
		{
			name:          "custom port",
			settingsJSON:  `{"INSPO_PORT": 9001}`,
			expectedPort:  9001,
			expectedBin:   DefaultAssistantBin,
			expectedIdeas: DefaultContextIdeas,
		},
		{
			name:          "multiple settings",
			settingsJSON:  `{"INSPO_PORT": 9002, "INSPO_ASSISTANT_BIN": "mock-claude", "INSPO_CONTEXT_IDEAS": 5}`,
			expectedPort:  9002,
			expectedBin:   "mock-claude",
			expectedIdeas: 5,
		},
		{
			name:          "invalid JSON returns defaults",
			settingsJSON:  `{invalid}`,
			expectedPort:  DefaultPort,
			expectedBin:   DefaultAssistantBin,
			expectedIdeas: DefaultContextIdeas,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)
			s.Require().NoError(os.MkdirAll(filepath.Join(tempDir, ".inspo"), 0750))

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".inspo", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.Require().NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.Port)
			s.Equal(tt.expectedBin, cfg.AssistantBin)
			s.Equal(tt.expectedIdeas, cfg.ContextIdeas)
		})
	}
}

// TestEnvOverrides tests environment variable precedence over the file.
func (s *ConfigSuite) TestEnvOverrides() {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.tempDir, ".inspo"), 0750))
	s.Require().NoError(os.WriteFile(
		filepath.Join(s.tempDir, ".inspo", "settings.json"),
		[]byte(`{"INSPO_PORT": 9100}`),
		0600,
	))

	os.Setenv("INSPO_PORT", "9200")
	os.Setenv("INSPO_DB_PATH", "/tmp/custom.db")
	os.Setenv("INSPO_SCHEDULE_HOUR", "not-a-number")
	defer func() {
		os.Unsetenv("INSPO_PORT")
		os.Unsetenv("INSPO_DB_PATH")
		os.Unsetenv("INSPO_SCHEDULE_HOUR")
	}()

	cfg, err := Load()
	s.NoError(err)
	s.Equal(9200, cfg.Port)
	s.Equal("/tmp/custom.db", cfg.DBPath)
	// Unparsable numeric values are ignored
	s.Equal(DefaultScheduleHour, cfg.ScheduleHour)
}

// TestGetCaches tests that Get returns the cached instance.
func (s *ConfigSuite) TestGetCaches() {
	first := Get()
	second := Get()
	s.Same(first, second)

	Reset()
	third := Get()
	s.NotSame(first, third)
}
