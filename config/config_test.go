package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Listen.Addr())
	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout())
	assert.Equal(t, "key.json", cfg.Calendar.CredentialsFile)
	assert.Equal(t, "Asia/Kolkata", cfg.Calendar.Timezone)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, SessionBackendMemory, cfg.Sessions.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Sessions.TTL.Duration)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen:
  port: 9000
model:
  provider: anthropic
  api_key: test-key
calendar:
  id: team@example.com
  timezone: Europe/Berlin
sessions:
  backend: sqlite
  sqlite_path: /tmp/test.db
  ttl: 1h
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen.Addr())
	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "test-key", cfg.Model.APIKey)
	assert.Equal(t, "team@example.com", cfg.Calendar.ID)
	assert.Equal(t, "Europe/Berlin", cfg.Calendar.Timezone)
	assert.Equal(t, SessionBackendSQLite, cfg.Sessions.Backend)
	assert.Equal(t, time.Hour, cfg.Sessions.TTL.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("CALENDAR_ID", "env-calendar")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Model.APIKey)
	assert.Equal(t, "env-calendar", cfg.Calendar.ID)
}

func TestLoad_AnthropicKeyFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
model:
  provider: anthropic
calendar:
  id: team@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ANTHROPIC_API_KEY", "claude-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-key", cfg.Model.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Model.APIKey = "key"
		cfg.Calendar.ID = "primary"
		return cfg
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Model.APIKey = ""
	assert.ErrorContains(t, cfg.Validate(), "API key")

	cfg = base()
	cfg.Calendar.ID = ""
	assert.ErrorContains(t, cfg.Validate(), "calendar id")

	cfg = base()
	cfg.Model.Provider = "mistral"
	assert.ErrorContains(t, cfg.Validate(), "unknown model provider")

	cfg = base()
	cfg.Sessions.Backend = "redis"
	assert.ErrorContains(t, cfg.Validate(), "unknown session backend")

	cfg = base()
	cfg.Calendar.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, cfg.Validate(), "invalid timezone")
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	d := Duration{90 * time.Minute}
	v, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", v)
}
