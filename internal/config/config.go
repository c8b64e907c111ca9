// Package config manages membot configuration (~/.config/membot/config.toml).
// The loaded Config is immutable: it is threaded into each component at
// construction, never read as ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all settings.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Model   ModelConfig   `toml:"model"`
	Context ContextConfig `toml:"context"`
	Memory  MemoryConfig  `toml:"memory"`
	Stream  StreamConfig  `toml:"stream"`
	Data    DataConfig    `toml:"data"`
	Keys    KeysConfig    `toml:"keys"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type ModelConfig struct {
	Provider    string  `toml:"provider"` // claude, openai
	Name        string  `toml:"name"`     // empty = adapter default
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Stream      bool    `toml:"stream"`
}

// ContextConfig controls how the transcript is windowed into a prompt.
type ContextConfig struct {
	// RecentMessages is the number of trailing messages sent verbatim.
	RecentMessages int `toml:"recent_messages"`
	// SummaryWindow is the number of messages preceding the recent window
	// that are offered for digestion into the rolling summary.
	SummaryWindow int `toml:"summary_window"`
	// SummarizeAfter is the minimum transcript length before any digest
	// request is made.
	SummarizeAfter int `toml:"summarize_after"`
	// SummaryTokenBudget caps the digest window text, in tokens.
	SummaryTokenBudget int `toml:"summary_token_budget"`
}

type MemoryConfig struct {
	MaxLines int `toml:"max_lines"`
}

// StreamConfig controls the SSE transport cadence. Intervals are in
// milliseconds.
type StreamConfig struct {
	HeartbeatIntervalMs int `toml:"heartbeat_interval_ms"`
	RenderIntervalMs    int `toml:"render_interval_ms"`
}

// HeartbeatInterval returns the keep-alive cadence.
func (s StreamConfig) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalMs) * time.Millisecond
}

// RenderInterval returns the minimum gap between re-rendered HTML events.
func (s StreamConfig) RenderInterval() time.Duration {
	return time.Duration(s.RenderIntervalMs) * time.Millisecond
}

type DataConfig struct {
	Dir string `toml:"dir"`
}

type KeysConfig struct {
	Anthropic string `toml:"anthropic"`
	OpenAI    string `toml:"openai"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8484",
		},
		Model: ModelConfig{
			Provider:    "claude",
			MaxTokens:   4096,
			Temperature: 0.7,
			Stream:      true,
		},
		Context: ContextConfig{
			RecentMessages:     12,
			SummaryWindow:      8,
			SummarizeAfter:     16,
			SummaryTokenBudget: 1500,
		},
		Memory: MemoryConfig{
			MaxLines: 200,
		},
		Stream: StreamConfig{
			HeartbeatIntervalMs: 15000,
			RenderIntervalMs:    400,
		},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "membot", "config.toml"), nil
}

// Load loads the config, applying defaults for any missing values. A missing
// file yields the defaults.
func Load() (Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return withEnvKeys(withDataDir(cfg)), nil
	}
	return LoadFile(path)
}

// LoadFile loads the config from an explicit path, applying defaults for any
// missing values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return withEnvKeys(withDataDir(cfg)), nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	return withEnvKeys(withDataDir(cfg)), nil
}

// MemoryPath returns the memory file location under the data dir.
func (c Config) MemoryPath() string {
	return filepath.Join(c.Data.Dir, "memory.txt")
}

// DBPath returns the session index database location under the data dir.
func (c Config) DBPath() string {
	return filepath.Join(c.Data.Dir, "membot.db")
}

// withDataDir fills in the default data directory when unset.
func withDataDir(cfg Config) Config {
	if cfg.Data.Dir != "" {
		return cfg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		cfg.Data.Dir = ".membot"
		return cfg
	}
	cfg.Data.Dir = filepath.Join(home, ".membot")
	return cfg
}

// withEnvKeys lets env vars override config file API keys.
func withEnvKeys(cfg Config) Config {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Keys.Anthropic = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Keys.OpenAI = v
	}
	return cfg
}

// APIKey returns the configured key for the given provider.
func (c Config) APIKey(provider string) string {
	switch provider {
	case "claude":
		return c.Keys.Anthropic
	case "openai":
		return c.Keys.OpenAI
	default:
		return ""
	}
}
