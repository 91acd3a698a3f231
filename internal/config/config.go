// Package config loads questd configuration from a YAML file with
// environment variable overrides. A missing config file is not an error;
// defaults plus environment are enough to run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all questd configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration (chat fallback, grader, quest generation)
	LLM LLMConfig `yaml:"llm"`

	// Quest store and generation
	Quests QuestsConfig `yaml:"quests"`

	// Reward ledger service
	Ledger LedgerConfig `yaml:"ledger"`

	// Platform integrations
	Twitter   TwitterConfig   `yaml:"twitter"`
	Farcaster FarcasterConfig `yaml:"farcaster"`

	// Bankr trading proxy
	Trading TradingConfig `yaml:"trading"`

	// HTTP API surface
	Server ServerConfig `yaml:"server"`

	// Router behavior
	Router RouterConfig `yaml:"router"`
}

// LLMConfig configures the Gemini client.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// QuestsConfig configures the quest store and auto-generation.
type QuestsConfig struct {
	DatabasePath     string `yaml:"database_path"`
	AutoGenerate     bool   `yaml:"auto_generate"`
	GenerateInterval string `yaml:"generate_interval"`
	QuestDuration    string `yaml:"quest_duration"`
}

// LedgerConfig configures the reward ledger client.
type LedgerConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// TwitterConfig configures the Twitter adapter.
type TwitterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BotUsername  string `yaml:"bot_username"`
	BearerToken  string `yaml:"bearer_token"`
	PollInterval string `yaml:"poll_interval"`
}

// FarcasterConfig configures the Farcaster (Neynar) adapter.
type FarcasterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	APIKey       string `yaml:"api_key"`
	SignerUUID   string `yaml:"signer_uuid"`
	PollInterval string `yaml:"poll_interval"`
}

// TradingConfig configures the Bankr trading proxy.
type TradingConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RouterConfig holds router behavior knobs. The history cap and approval
// threshold are deliberate product constants; they are configurable so tests
// and deployments can pin them, but the defaults are the contract.
type RouterConfig struct {
	HistoryLimit      int    `yaml:"history_limit"`
	ApprovalThreshold int    `yaml:"approval_threshold"`
	DashboardURL      string `yaml:"dashboard_url"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Name:    "questd",
		Version: "1.0.0",
		LLM: LLMConfig{
			Model:   "gemini-3-flash-preview",
			Timeout: "30s",
		},
		Quests: QuestsConfig{
			DatabasePath:     "data/quests.db",
			GenerateInterval: "24h",
			QuestDuration:    "24h",
		},
		Ledger: LedgerConfig{
			BaseURL: "https://ledger.openquest.app",
			Timeout: "15s",
		},
		Twitter: TwitterConfig{
			BotUsername:  "OpenQuestBot",
			PollInterval: "30s",
		},
		Farcaster: FarcasterConfig{
			PollInterval: "30s",
		},
		Trading: TradingConfig{
			BaseURL: "https://api.bankr.bot",
			Timeout: "30s",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Router: RouterConfig{
			HistoryLimit:      10,
			ApprovalThreshold: 70,
			DashboardURL:      "https://openquest.app",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults if
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides maps environment variables onto the config. Environment
// always wins over file values when set.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("QUEST_DB_PATH"); v != "" {
		c.Quests.DatabasePath = v
	}
	if v := os.Getenv("ENABLE_AUTO_QUESTS"); v != "" {
		c.Quests.AutoGenerate = v == "true"
	}
	if v := os.Getenv("QUEST_INTERVAL_HOURS"); v != "" {
		c.Quests.GenerateInterval = v + "h"
	}
	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		c.Ledger.BaseURL = v
	}
	if v := os.Getenv("LEDGER_API_KEY"); v != "" {
		c.Ledger.APIKey = v
	}
	if v := os.Getenv("ENABLE_TWITTER"); v != "" {
		c.Twitter.Enabled = v == "true"
	}
	if v := os.Getenv("TWITTER_BOT_USERNAME"); v != "" {
		c.Twitter.BotUsername = v
	}
	if v := os.Getenv("TWITTER_BEARER_TOKEN"); v != "" {
		c.Twitter.BearerToken = v
	}
	if v := os.Getenv("ENABLE_FARCASTER"); v != "" {
		c.Farcaster.Enabled = v == "true"
	}
	if v := os.Getenv("NEYNAR_API_KEY"); v != "" {
		c.Farcaster.APIKey = v
	}
	if v := os.Getenv("FARCASTER_SIGNER_UUID"); v != "" {
		c.Farcaster.SignerUUID = v
	}
	if v := os.Getenv("BANKR_API_URL"); v != "" {
		c.Trading.BaseURL = v
	}
	if v := os.Getenv("BANKR_API_KEY"); v != "" {
		c.Trading.APIKey = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DASHBOARD_URL"); v != "" {
		c.Router.DashboardURL = v
	}
}

// ParseDuration parses a duration string, returning fallback when the value
// is empty or malformed. Outbound clients must never end up with a zero
// timeout, so callers pass their sane default here.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key (GEMINI_API_KEY) is required")
	}
	if c.Router.HistoryLimit <= 0 {
		return fmt.Errorf("router.history_limit must be positive")
	}
	if c.Router.ApprovalThreshold < 0 || c.Router.ApprovalThreshold > 100 {
		return fmt.Errorf("router.approval_threshold must be in [0,100]")
	}
	return nil
}
