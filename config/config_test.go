package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermean/supermean/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "supermean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.MaxConcurrentAgents)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTimeout())
	assert.Equal(t, time.Hour, cfg.RetentionWindow())
	assert.Equal(t, time.Minute, cfg.ReflectionInterval())
	assert.Equal(t, 30*time.Second, cfg.Cooldown())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
max_concurrent_agents: 4
default_timeout: 60
router:
  max_consecutive_failures: 5
  cooldown_seconds: 10
models:
  - name: mock-a
    provider: mock
    priority: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxConcurrentAgents)
	assert.Equal(t, time.Minute, cfg.DefaultTimeout())
	assert.Equal(t, 5, cfg.Router.MaxConsecutiveFailures)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "mock-a", cfg.Models[0].Name)

	// Untouched fields keep their defaults.
	assert.Equal(t, time.Hour, cfg.RetentionWindow())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SUPERMEAN_KEY", "sk-secret")
	path := writeConfig(t, `
models:
  - name: claude
    provider: anthropic
    model: claude-sonnet-4-20250514
    api_key: ${TEST_SUPERMEAN_KEY}
    priority: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "sk-secret", cfg.Models[0].APIKey)
}

func TestLoadKeepsLiteralDollar(t *testing.T) {
	t.Setenv("TEST_SUPERMEAN_KEY", "sk-secret")
	path := writeConfig(t, `
models:
  - name: claude
    provider: anthropic
    api_key: "pa$$word$x"
    priority: 20
  - name: gpt
    provider: openai
    api_key: ${TEST_SUPERMEAN_KEY}
    priority: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 2)

	// Only the braced ${VAR} form is expanded; bare dollars survive.
	assert.Equal(t, "pa$$word$x", cfg.Models[0].APIKey)
	assert.Equal(t, "sk-secret", cfg.Models[1].APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *Config) { c.MaxConcurrentAgents = 0 },
			field:  "max_concurrent_agents",
		},
		{
			name:   "negative timeout",
			mutate: func(c *Config) { c.DefaultTimeoutSecs = -1 },
			field:  "default_timeout",
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Models = []ModelConfig{{Name: "x", Provider: "cohere"}}
			},
			field: "models[0].provider",
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.Models = []ModelConfig{{Name: "x", Provider: "openai"}}
			},
			field: "models[0].api_key",
		},
		{
			name: "duplicate backend",
			mutate: func(c *Config) {
				c.Models = []ModelConfig{
					{Name: "x", Provider: "mock"},
					{Name: "x", Provider: "mock"},
				}
			},
			field: "models[1].name",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.LogLevel = "verbose" },
			field:  "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
