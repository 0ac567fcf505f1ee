// Package models maps model names to the provider that serves them and lists
// what each configured provider can run.
package models

import (
	"fmt"
	"strings"

	"github.com/04arvind/newla/pkg/config"
)

// ProviderInfo describes a configured provider and its models.
type ProviderInfo struct {
	Name      string
	HasAPIKey bool
	Model     string
	Models    []string
}

// ResolveProvider returns the provider name that would handle the given
// model string, or the configured default when it cannot be inferred.
func ResolveProvider(model string, cfg *config.Config) string {
	lower := strings.ToLower(model)

	if strings.Contains(lower, "claude") || strings.HasPrefix(lower, "anthropic/") {
		return "claude"
	}
	if strings.Contains(lower, "gpt") || strings.Contains(lower, "o1") || strings.Contains(lower, "o3") || strings.HasPrefix(lower, "openai/") {
		return "openai"
	}

	if cfg != nil && cfg.DefaultProvider != "" {
		return cfg.DefaultProvider
	}
	return "unknown"
}

// KnownModels returns the built-in model ids for a provider.
func KnownModels(provider string) []string {
	switch provider {
	case "claude":
		return []string{"claude-3-5-haiku-latest", "claude-sonnet-4-20250514", "claude-opus-4-20250514"}
	case "openai":
		return []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}
	default:
		return nil
	}
}

// ListProviders returns info about all providers with credentials.
func ListProviders(cfg *config.Config) []ProviderInfo {
	var infos []ProviderInfo

	add := func(name string, pc config.ProviderConfig) {
		if pc.APIKey == "" {
			return
		}
		infos = append(infos, ProviderInfo{
			Name:      name,
			HasAPIKey: true,
			Model:     pc.Model,
			Models:    KnownModels(name),
		})
	}

	add("claude", cfg.Providers.Claude)
	add("openai", cfg.Providers.OpenAI)

	return infos
}

// PrintList displays configured providers and their models.
func PrintList(cfg *config.Config) {
	fmt.Printf("Default provider: %s\n", cfg.DefaultProvider)

	infos := ListProviders(cfg)
	if len(infos) == 0 {
		fmt.Println("\nNo providers configured. Set CLAUDE_API_KEY or OPENAI_API_KEY, or edit the config file.")
		return
	}

	fmt.Println("\nConfigured providers:")
	for _, p := range infos {
		model := p.Model
		if model == "" {
			model = "(default)"
		}
		fmt.Printf("  %s (model: %s)\n", p.Name, model)
		for _, m := range p.Models {
			fmt.Printf("    - %s\n", m)
		}
	}
}
