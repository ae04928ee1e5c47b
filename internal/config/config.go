package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Parser backends.
const (
	BackendBracket = "bracket"
	BackendCoreNLP = "corenlp"
)

// Config holds all gitchat configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Constituency parser
	Parser ParserConfig `yaml:"parser"`

	// Hosting-service backend
	Hub HubConfig `yaml:"hub"`

	// Chat presentation
	Chat ChatConfig `yaml:"chat"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics"`
}

// ParserConfig selects and configures the constituency parser.
type ParserConfig struct {
	Backend          string `yaml:"backend"` // bracket, corenlp
	CoreNLPURL       string `yaml:"corenlp_url"`
	Timeout          string `yaml:"timeout"`
	ImperativePrefix string `yaml:"imperative_prefix"`
}

// HubConfig configures the local hub database.
type HubConfig struct {
	DatabasePath string `yaml:"database_path"`
	// SeedFile is loaded into an empty database on startup.
	SeedFile string `yaml:"seed_file"`
}

// ChatConfig configures the chat console.
type ChatConfig struct {
	BotNick     string `yaml:"bot_nick"`
	DefaultNick string `yaml:"default_nick"`
	MaxNickLen  int    `yaml:"max_nick_len"`
	Color       bool   `yaml:"color"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "gitchat",
		Version: "0.3.0",

		Parser: ParserConfig{
			Backend:          BackendBracket,
			CoreNLPURL:       "http://localhost:9000",
			Timeout:          "10s",
			ImperativePrefix: "show",
		},

		Hub: HubConfig{
			DatabasePath: ".gitchat/hub.db",
		},

		Chat: ChatConfig{
			BotNick:     "gitchat",
			DefaultNick: "you",
			MaxNickLen:  10,
			Color:       true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("GITCHAT_CORENLP_URL"); url != "" {
		c.Parser.CoreNLPURL = url
		if c.Parser.Backend == "" {
			c.Parser.Backend = BackendCoreNLP
		}
	}
	if backend := os.Getenv("GITCHAT_PARSER"); backend != "" {
		c.Parser.Backend = backend
	}

	// Database path from environment
	if path := os.Getenv("GITCHAT_DB"); path != "" {
		c.Hub.DatabasePath = path
	}

	if addr := os.Getenv("GITCHAT_METRICS_ADDR"); addr != "" {
		c.Metrics.ListenAddr = addr
		c.Metrics.Enabled = true
	}
}

// GetParserTimeout returns the parser request timeout as a duration.
func (c *Config) GetParserTimeout() time.Duration {
	d, err := time.ParseDuration(c.Parser.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ValidBackends lists all supported parser backends.
var ValidBackends = []string{BackendBracket, BackendCoreNLP}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validBackend := false
	for _, b := range ValidBackends {
		if c.Parser.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid parser backend: %s (valid: %v)", c.Parser.Backend, ValidBackends)
	}

	if c.Parser.Backend == BackendCoreNLP && c.Parser.CoreNLPURL == "" {
		return fmt.Errorf("parser backend %s needs corenlp_url (or GITCHAT_CORENLP_URL)", BackendCoreNLP)
	}
	if c.Hub.DatabasePath == "" {
		return fmt.Errorf("hub database_path not configured (set GITCHAT_DB)")
	}
	if c.Chat.MaxNickLen < 4 {
		return fmt.Errorf("chat max_nick_len must be at least 4, got %d", c.Chat.MaxNickLen)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics enabled without listen_addr")
	}
	return nil
}

// IsMetricsEnabled returns whether the metrics endpoint is served.
func (c *Config) IsMetricsEnabled() bool {
	return c.Metrics.Enabled
}
