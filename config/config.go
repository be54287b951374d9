package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conclave-ai/conclave/intent"
)

// Config holds the full platform configuration.
type Config struct {
	Pool    PoolConfig    `yaml:"pool"`
	Cache   CacheConfig   `yaml:"cache"`
	Retry   RetryConfig   `yaml:"retry"`
	Session SessionConfig `yaml:"session"`
	Intent  IntentConfig  `yaml:"intent"`
	Consult ConsultConfig `yaml:"consult"`
	Agents  []AgentConfig `yaml:"agents"`
	Logging LoggingConfig `yaml:"logging"`
}

// PoolConfig bounds concurrent upstream connections.
type PoolConfig struct {
	Size        int           `yaml:"size"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// RetryConfig controls retry of transient upstream failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      bool          `yaml:"jitter"`
}

// SessionConfig controls the context store.
type SessionConfig struct {
	// DBPath enables SQLite persistence when set; empty keeps sessions
	// in memory only.
	DBPath      string        `yaml:"db_path"`
	HotTTL      time.Duration `yaml:"hot_ttl"`
	HotCapacity int           `yaml:"hot_capacity"`
}

// IntentConfig controls classification.
type IntentConfig struct {
	// Model names the classification model; empty disables model-based
	// classification and uses keyword rules only.
	Model               string        `yaml:"model"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	DefaultLabel        string        `yaml:"default_label"`
	Rules               []intent.Rule `yaml:"rules"`
}

// ConsultConfig controls agent-to-agent consultation.
type ConsultConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// AgentConfig declares one agent and its consultation routes.
type AgentConfig struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"`
	Instructions string `yaml:"instructions"`
	HistoryTurns int    `yaml:"history_turns"`
	// Routes maps intent labels to the agent consulted for them.
	Routes map[string]string `yaml:"routes"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Size:        4,
			WaitTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Capacity: 1024,
			TTL:      5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			Jitter:      true,
		},
		Session: SessionConfig{
			HotTTL:      30 * time.Minute,
			HotCapacity: 4096,
		},
		Intent: IntentConfig{
			ConfidenceThreshold: 0.5,
			DefaultLabel:        "general",
		},
		Consult: ConsultConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expands environment variables and applies
// defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot be wired.
func (c *Config) Validate() error {
	if c.Pool.Size <= 0 {
		return fmt.Errorf("pool.size must be positive, got %d", c.Pool.Size)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Intent.ConfidenceThreshold < 0 || c.Intent.ConfidenceThreshold > 1 {
		return fmt.Errorf("intent.confidence_threshold must be in [0,1], got %v", c.Intent.ConfidenceThreshold)
	}
	for i, r := range c.Intent.Rules {
		if r.Label == "" {
			return fmt.Errorf("intent.rules[%d]: label must not be empty", i)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("intent.rules[%d] (%s): keywords must not be empty", i, r.Label)
		}
	}
	names := make(map[string]struct{}, len(c.Agents))
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d]: name must not be empty", i)
		}
		if _, dup := names[a.Name]; dup {
			return fmt.Errorf("agents[%d]: duplicate agent name %q", i, a.Name)
		}
		names[a.Name] = struct{}{}
	}
	for _, a := range c.Agents {
		for label, target := range a.Routes {
			if _, ok := names[target]; !ok {
				return fmt.Errorf("agent %s routes %q to unknown agent %q", a.Name, label, target)
			}
		}
	}
	return nil
}
