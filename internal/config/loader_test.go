package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8420, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 50, cfg.Bandit.Window)
	require.NotNil(t, cfg.Bandit.Epsilon)
	assert.Equal(t, 0.1, *cfg.Bandit.Epsilon)
	assert.Equal(t, 2.0, cfg.Bandit.UCBC)
	assert.Equal(t, 0.3, cfg.Reward.Alpha)
	assert.Equal(t, time.Hour, cfg.Improver.Interval)
	require.NotNil(t, cfg.Improver.EvolveEvery)
	assert.Equal(t, 5, *cfg.Improver.EvolveEvery)
	assert.Equal(t, 2.0, cfg.Evolution.Threshold)
	assert.Equal(t, 0.5, cfg.Evolution.Noise)
	assert.Equal(t, "nop", cfg.Episodic.Sink)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
bandit:
  epsilon: 0.2
  window: 10
episodic:
  sink: chromem
  path: /tmp/episodes
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	require.NotNil(t, cfg.Bandit.Epsilon)
	assert.Equal(t, 0.2, *cfg.Bandit.Epsilon)
	assert.Equal(t, 10, cfg.Bandit.Window)
	assert.Equal(t, "chromem", cfg.Episodic.Sink)
	assert.Equal(t, "/tmp/episodes", cfg.Episodic.Path)

	// Unset sections still get defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExplicitZerosSurviveDefaulting(t *testing.T) {
	// epsilon: 0 means pure exploitation and evolve_every: 0 disables
	// evolution. Neither may be silently replaced by the default.
	path := writeConfig(t, `
bandit:
  epsilon: 0
improver:
  evolve_every: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Bandit.Epsilon)
	assert.Equal(t, 0.0, *cfg.Bandit.Epsilon)
	require.NotNil(t, cfg.Improver.EvolveEvery)
	assert.Equal(t, 0, *cfg.Improver.EvolveEvery)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	t.Setenv("PROTOCOLD_SERVER_PORT", "9100")
	t.Setenv("PROTOCOLD_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8420, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad telemetry protocol", func(c *Config) { c.Telemetry.Protocol = "udp" }},
		{"epsilon above one", func(c *Config) { epsilon := 1.5; c.Bandit.Epsilon = &epsilon }},
		{"alpha above one", func(c *Config) { c.Reward.Alpha = 2.0 }},
		{"threshold above max reward", func(c *Config) { c.Evolution.Threshold = 6.0 }},
		{"unknown sink", func(c *Config) { c.Episodic.Sink = "kafka" }},
		{"chromem without path", func(c *Config) {
			c.Episodic.Sink = "chromem"
			c.Episodic.Path = ""
		}},
		{"watch without path", func(c *Config) {
			c.Manifest.Watch = true
			c.Manifest.Path = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
