package providers

import (
	"strings"
	"testing"

	"github.com/04arvind/newla/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers.Claude.APIKey = "test-claude-key"
	cfg.Providers.OpenAI.APIKey = "test-openai-key"
	return cfg
}

func TestNewRegistry_BuildsConfiguredProviders(t *testing.T) {
	registry, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	names := registry.Names()
	if len(names) != 2 {
		t.Fatalf("Expected 2 providers, got %v", names)
	}

	if registry.Default() == nil {
		t.Fatal("Expected a default provider")
	}
	if registry.Default().Name() != "claude" {
		t.Errorf("Expected claude default, got %s", registry.Default().Name())
	}
}

func TestNewRegistry_MissingDefaultCredential(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.OpenAI.APIKey = "only-openai"
	// Default is claude, which has no key.

	if _, err := NewRegistry(cfg); err == nil {
		t.Fatal("Expected error when default provider has no credentials")
	}
}

func TestRegistry_GetUnknownProvider(t *testing.T) {
	registry, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	_, err = registry.Get("gemini")
	if err == nil {
		t.Fatal("Expected error for unknown provider name")
	}
	if !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("Expected unsupported provider message, got: %v", err)
	}
}

func TestRegistry_GetEmptyNameReturnsDefault(t *testing.T) {
	registry, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	p, err := registry.Get("")
	if err != nil {
		t.Fatalf("Get(\"\"): %v", err)
	}
	if p.Name() != "claude" {
		t.Errorf("Expected default provider, got %s", p.Name())
	}
}
