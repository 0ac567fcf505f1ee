package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig holds credentials and model selection for one completion backend.
type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

type ProvidersConfig struct {
	Claude ProviderConfig `json:"claude" yaml:"claude"`
	OpenAI ProviderConfig `json:"openai" yaml:"openai"`
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host" env:"NEWLA_GATEWAY_HOST"`
	Port int    `json:"port" yaml:"port" env:"NEWLA_GATEWAY_PORT"`
}

type AgentConfig struct {
	MaxRetries     int `json:"max_retries" yaml:"max_retries" env:"NEWLA_MAX_RETRIES"`
	CommandTimeout int `json:"command_timeout" yaml:"command_timeout" env:"NEWLA_COMMAND_TIMEOUT"`
	HistoryLimit   int `json:"history_limit" yaml:"history_limit" env:"NEWLA_HISTORY_LIMIT"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level" env:"NEWLA_LOG_LEVEL"`
}

type Config struct {
	Workspace       string          `json:"workspace" yaml:"workspace" env:"NEWLA_WORKSPACE"`
	DefaultProvider string          `json:"default_provider" yaml:"default_provider" env:"NEWLA_DEFAULT_PROVIDER"`
	Agent           AgentConfig     `json:"agent" yaml:"agent"`
	Gateway         GatewayConfig   `json:"gateway" yaml:"gateway"`
	Providers       ProvidersConfig `json:"providers" yaml:"providers"`
	Logging         LoggingConfig   `json:"logging" yaml:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		Workspace:       "workspace",
		DefaultProvider: "claude",
		Agent: AgentConfig{
			MaxRetries:     3,
			CommandTimeout: 30,
			HistoryLimit:   100,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// WorkspacePath returns the absolute workspace root.
func (c *Config) WorkspacePath() string {
	abs, err := filepath.Abs(c.Workspace)
	if err != nil {
		return c.Workspace
	}
	return abs
}

// envOverrides layers provider credentials from the conventional environment
// variables (CLAUDE_API_KEY, OPENAI_API_KEY) over the config file.
type envOverrides struct {
	ClaudeAPIKey  string `env:"CLAUDE_API_KEY"`
	ClaudeModel   string `env:"CLAUDE_MODEL"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
}

// Load reads configuration from the given file (JSON or YAML by extension),
// layering a .env file and process environment on top. A missing config file
// is not an error; defaults apply.
func Load(path string) (*Config, error) {
	// .env first so env.Parse sees its values. Missing .env is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			if err := unmarshalConfig(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	applyOverrides(cfg, ov)

	return cfg, nil
}

func unmarshalConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return nil
}

func applyOverrides(cfg *Config, ov envOverrides) {
	if ov.ClaudeAPIKey != "" {
		cfg.Providers.Claude.APIKey = ov.ClaudeAPIKey
	}
	if ov.ClaudeModel != "" {
		cfg.Providers.Claude.Model = ov.ClaudeModel
	}
	if ov.OpenAIAPIKey != "" {
		cfg.Providers.OpenAI.APIKey = ov.OpenAIAPIKey
	}
	if ov.OpenAIModel != "" {
		cfg.Providers.OpenAI.Model = ov.OpenAIModel
	}
	if ov.OpenAIBaseURL != "" {
		cfg.Providers.OpenAI.BaseURL = ov.OpenAIBaseURL
	}
}

// DefaultConfigPath returns the config file next to the working directory,
// honoring NEWLA_CONFIG when set.
func DefaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("NEWLA_CONFIG")); p != "" {
		return p
	}
	return "config.json"
}
