package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Workspace != "workspace" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.DefaultProvider != "claude" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
	if cfg.Agent.MaxRetries != 3 || cfg.Agent.CommandTimeout != 30 || cfg.Agent.HistoryLimit != 100 {
		t.Errorf("Agent = %+v", cfg.Agent)
	}
	if cfg.Gateway.Host != "127.0.0.1" || cfg.Gateway.Port != 8000 {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultProvider != "claude" || cfg.Agent.MaxRetries != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"workspace": "/tmp/ws",
		"default_provider": "openai",
		"agent": {"max_retries": 5, "command_timeout": 60, "history_limit": 10},
		"providers": {"openai": {"api_key": "sk-test", "model": "gpt-4o-mini"}}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/tmp/ws" || cfg.DefaultProvider != "openai" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Agent.MaxRetries != 5 || cfg.Agent.CommandTimeout != 60 {
		t.Errorf("Agent = %+v", cfg.Agent)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-test" || cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI = %+v", cfg.Providers.OpenAI)
	}
	// Fields the file omits keep their defaults.
	if cfg.Gateway.Port != 8000 {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
workspace: builds
default_provider: claude
gateway:
  host: 0.0.0.0
  port: 9001
providers:
  claude:
    api_key: sk-ant-test
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "builds" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.Gateway.Host != "0.0.0.0" || cfg.Gateway.Port != 9001 {
		t.Errorf("Gateway = %+v", cfg.Gateway)
	}
	if cfg.Providers.Claude.APIKey != "sk-ant-test" {
		t.Errorf("Claude = %+v", cfg.Providers.Claude)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWLA_WORKSPACE", "/env/ws")
	t.Setenv("NEWLA_DEFAULT_PROVIDER", "openai")
	t.Setenv("NEWLA_MAX_RETRIES", "7")
	t.Setenv("NEWLA_GATEWAY_PORT", "9999")
	t.Setenv("NEWLA_LOG_LEVEL", "warn")
	t.Setenv("CLAUDE_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_API_KEY", "sk-oai-env")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/env/ws" || cfg.DefaultProvider != "openai" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Agent.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", cfg.Agent.MaxRetries)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("Port = %d", cfg.Gateway.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if cfg.Providers.Claude.APIKey != "sk-from-env" {
		t.Errorf("Claude key = %q", cfg.Providers.Claude.APIKey)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-oai-env" || cfg.Providers.OpenAI.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("OpenAI = %+v", cfg.Providers.OpenAI)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"providers": {"claude": {"api_key": "from-file"}}}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CLAUDE_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Claude.APIKey != "from-env" {
		t.Errorf("Claude key = %q", cfg.Providers.Claude.APIKey)
	}
}

func TestWorkspacePathAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workspace = "relative/dir"
	if !filepath.IsAbs(cfg.WorkspacePath()) {
		t.Errorf("WorkspacePath = %q", cfg.WorkspacePath())
	}

	cfg.Workspace = "/already/abs"
	if cfg.WorkspacePath() != "/already/abs" {
		t.Errorf("WorkspacePath = %q", cfg.WorkspacePath())
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("NEWLA_CONFIG", "")
	if DefaultConfigPath() != "config.json" {
		t.Errorf("DefaultConfigPath = %q", DefaultConfigPath())
	}
	t.Setenv("NEWLA_CONFIG", "/etc/newla.yaml")
	if DefaultConfigPath() != "/etc/newla.yaml" {
		t.Errorf("DefaultConfigPath = %q", DefaultConfigPath())
	}
}
