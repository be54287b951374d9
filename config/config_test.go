package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/intent"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conclave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4, cfg.Pool.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "general", cfg.Intent.DefaultLabel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_CLASSIFIER_MODEL", "gpt-4o-mini")

	path := writeConfig(t, `
pool:
  size: 8
  wait_timeout: 2s
cache:
  capacity: 512
  ttl: 30m
retry:
  max_attempts: 5
  base_delay: 50ms
intent:
  model: ${TEST_CLASSIFIER_MODEL}
  confidence_threshold: 0.7
  rules:
    - label: billing
      keywords: [invoice, refund]
agents:
  - name: support
    model: gpt-4o
    routes:
      billing: billing-desk
  - name: billing-desk
    model: gpt-4o
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pool.Size)
	assert.Equal(t, 2*time.Second, cfg.Pool.WaitTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "gpt-4o-mini", cfg.Intent.Model, "env var expanded")
	assert.Equal(t, 0.7, cfg.Intent.ConfidenceThreshold)
	require.Len(t, cfg.Intent.Rules, 1)
	assert.Equal(t, "billing", cfg.Intent.Rules[0].Label)

	// Unset sections keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Consult.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/conclave.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "zero pool size",
			mutate:  func(c *Config) { c.Pool.Size = 0 },
			wantErr: "pool.size",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Intent.ConfidenceThreshold = 1.5 },
			wantErr: "confidence_threshold",
		},
		{
			name: "rule without keywords",
			mutate: func(c *Config) {
				c.Intent.Rules = append(c.Intent.Rules, intent.Rule{Label: "x"})
			},
			wantErr: "keywords",
		},
		{
			name: "duplicate agent name",
			mutate: func(c *Config) {
				c.Agents = []AgentConfig{{Name: "a"}, {Name: "a"}}
			},
			wantErr: "duplicate",
		},
		{
			name: "route to unknown agent",
			mutate: func(c *Config) {
				c.Agents = []AgentConfig{{Name: "a", Routes: map[string]string{"x": "ghost"}}}
			},
			wantErr: "unknown agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
