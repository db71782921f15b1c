// Package config handles schedbot configuration loading: a YAML file with
// environment variable fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Config holds all schedbot configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Model    ModelConfig    `yaml:"model"`
	Calendar CalendarConfig `yaml:"calendar"`
	Agent    AgentConfig    `yaml:"agent"`
	Sessions SessionsConfig `yaml:"sessions"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ListenConfig defines the HTTP listener.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`    // Default: 8080
}

// Addr returns the address:port string for net.Listen.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Address, l.Port)
}

// ModelConfig defines the language model provider.
type ModelConfig struct {
	// Provider selects the adapter: "openai" or "anthropic".
	Provider string `yaml:"provider"`
	// Name overrides the provider's default model id.
	Name string `yaml:"name"`
	// APIKey may be left empty to use the provider's conventional
	// environment variable (OPENAI_API_KEY / ANTHROPIC_API_KEY).
	APIKey string `yaml:"api_key"`
	// TimeoutSec bounds a single model call (default 60).
	TimeoutSec int `yaml:"timeout_sec"`
}

// Timeout returns the model call timeout.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// CalendarConfig defines the external calendar.
type CalendarConfig struct {
	// ID is the target calendar identifier. Falls back to CALENDAR_ID.
	ID string `yaml:"id"`
	// CredentialsFile is the service account key path (default "key.json").
	CredentialsFile string `yaml:"credentials_file"`
	// Timezone used to resolve dates and schedule events.
	Timezone string `yaml:"timezone"`
	// TimeoutSec bounds a single calendar call (default 30).
	TimeoutSec int `yaml:"timeout_sec"`
}

// Timeout returns the calendar call timeout.
func (c CalendarConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxIterations caps model turns per request (default 10).
	MaxIterations int `yaml:"max_iterations"`
	// ToolTimeoutSec bounds each tool execution (default 15).
	ToolTimeoutSec int `yaml:"tool_timeout_sec"`
	// MaxHistoryTurns limits replayed history; 0 replays everything.
	MaxHistoryTurns int `yaml:"max_history_turns"`
}

// SessionsConfig selects and tunes the session store.
type SessionsConfig struct {
	// Backend is "memory" or "sqlite" (default "memory").
	Backend string `yaml:"backend"`
	// TTL evicts idle in-memory sessions, e.g. "24h". Zero keeps them for
	// the process lifetime.
	TTL Duration `yaml:"ttl"`
	// SQLitePath is the database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
}

// Duration wraps time.Duration so YAML strings like "24h" decode directly.
type Duration struct {
	time.Duration
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dur
	return nil
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Provider:   ProviderOpenAI,
			TimeoutSec: 60,
		},
		Calendar: CalendarConfig{
			CredentialsFile: "key.json",
			Timezone:        "Asia/Kolkata",
			TimeoutSec:      30,
		},
		Agent: AgentConfig{
			MaxIterations:  10,
			ToolTimeoutSec: 15,
		},
		Sessions: SessionsConfig{
			Backend:    SessionBackendMemory,
			TTL:        Duration{24 * time.Hour},
			SQLitePath: "schedbot.db",
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// DefaultSearchPaths returns the config file search order. An explicit path
// (from the -config flag) is checked first by Load.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "schedbot", "config.yaml"))
	}
	paths = append(paths, "/etc/schedbot/config.yaml")
	return paths
}

// Load reads configuration. If explicit is non-empty the file must exist;
// otherwise the default search paths are tried and, when none matches, the
// defaults (plus environment fallbacks) are used.
func Load(explicit string) (*Config, error) {
	cfg := Default()

	path := ""
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file not found: %s", explicit)
		}
		path = explicit
	} else {
		for _, p := range DefaultSearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets and identifiers from the environment when the file
// left them empty.
func (c *Config) applyEnv() {
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case ProviderAnthropic:
			c.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Calendar.ID == "" {
		c.Calendar.ID = os.Getenv("CALENDAR_ID")
	}
}

// Validate rejects configurations the service cannot start with. A missing
// model API key or calendar identifier is a fatal startup error.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}

	if c.Model.APIKey == "" {
		return fmt.Errorf("model API key not found in config or environment")
	}
	if c.Calendar.ID == "" {
		return fmt.Errorf("calendar id not found in config or environment")
	}

	switch c.Sessions.Backend {
	case SessionBackendMemory, SessionBackendSQLite:
	default:
		return fmt.Errorf("unknown session backend %q", c.Sessions.Backend)
	}

	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Calendar.Timezone, err)
	}

	return nil
}
