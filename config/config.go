// Package config loads and validates the runtime configuration. Values come
// from a YAML file with ${VAR} environment expansion; a .env file alongside
// the process is loaded first when present. Configuration problems are fatal
// at startup, callers must not run with a partially valid config.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/supermean/supermean/core"
)

// ModelConfig declares one model backend to register on the router.
type ModelConfig struct {
	// Name identifies the backend on the router and in task preferences.
	Name string `yaml:"name"`
	// Provider selects the adapter: "anthropic", "openai" or "mock".
	Provider string `yaml:"provider"`
	// Model is the provider-side model identifier.
	Model string `yaml:"model,omitempty"`
	// APIKey may use ${VAR} expansion to pull from the environment.
	APIKey string `yaml:"api_key,omitempty"`
	// Priority orders failover; higher is tried first.
	Priority int `yaml:"priority"`
}

// RouterConfig tunes backend health tracking.
type RouterConfig struct {
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
	CooldownSeconds        int `yaml:"cooldown_seconds"`
}

// Config is the resolved runtime configuration.
type Config struct {
	MaxConcurrentAgents int  `yaml:"max_concurrent_agents"`
	DefaultTimeoutSecs  int  `yaml:"default_timeout"`
	RetentionSecs       int  `yaml:"retention_window"`
	ReflectionSecs      int  `yaml:"reflection_interval"`
	StrictSkills        bool `yaml:"strict_skills"`

	Router RouterConfig  `yaml:"router"`
	Models []ModelConfig `yaml:"models"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxConcurrentAgents: 10,
		DefaultTimeoutSecs:  300,
		RetentionSecs:       3600,
		ReflectionSecs:      60,
		Router: RouterConfig{
			MaxConsecutiveFailures: 3,
			CooldownSeconds:        30,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults. Environment variables
// referenced as ${VAR} in the file are expanded after a best-effort .env
// load, so API keys never need to live in the file itself.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	expanded := expandEnvRefs(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvRefs substitutes ${VAR} references with their environment values.
// Only the braced form is recognized, so values containing a bare $ pass
// through unchanged.
func expandEnvRefs(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Validate checks the configuration and returns a *core.ConfigurationError
// for the first problem found.
func (c *Config) Validate() error {
	if c.MaxConcurrentAgents <= 0 {
		return core.NewConfigurationError("max_concurrent_agents", "must be positive")
	}
	if c.DefaultTimeoutSecs <= 0 {
		return core.NewConfigurationError("default_timeout", "must be positive")
	}
	if c.RetentionSecs <= 0 {
		return core.NewConfigurationError("retention_window", "must be positive")
	}
	if c.ReflectionSecs <= 0 {
		return core.NewConfigurationError("reflection_interval", "must be positive")
	}
	if c.Router.MaxConsecutiveFailures <= 0 {
		return core.NewConfigurationError("router.max_consecutive_failures", "must be positive")
	}
	if c.Router.CooldownSeconds <= 0 {
		return core.NewConfigurationError("router.cooldown_seconds", "must be positive")
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		field := fmt.Sprintf("models[%d]", i)
		if m.Name == "" {
			return core.NewConfigurationError(field+".name", "is required")
		}
		if seen[m.Name] {
			return core.NewConfigurationError(field+".name", "duplicate backend name "+m.Name)
		}
		seen[m.Name] = true
		switch m.Provider {
		case "anthropic", "openai", "mock":
		default:
			return core.NewConfigurationError(field+".provider", "unknown provider "+m.Provider)
		}
		if m.Provider != "mock" && m.APIKey == "" {
			return core.NewConfigurationError(field+".api_key", "is required for provider "+m.Provider)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return core.NewConfigurationError("log_level", "unknown level "+c.LogLevel)
	}

	return nil
}

// DefaultTimeout returns the per-task deadline as a duration.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSecs) * time.Second
}

// RetentionWindow returns how long terminal tasks stay visible.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionSecs) * time.Second
}

// ReflectionInterval returns the self-reflection loop period.
func (c *Config) ReflectionInterval() time.Duration {
	return time.Duration(c.ReflectionSecs) * time.Second
}

// Cooldown returns the router's unavailable-backend cooldown.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Router.CooldownSeconds) * time.Second
}
