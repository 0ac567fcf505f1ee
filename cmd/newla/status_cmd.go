package main

import (
	"fmt"
	"os"

	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/models"
	"github.com/04arvind/newla/pkg/state"
)

func statusCmd() {
	cfg := mustLoadConfig()
	configPath := config.DefaultConfigPath()

	fmt.Printf("%s %s Status\n\n", logo, displayName)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗ (defaults in effect)")
	}

	workspace := cfg.WorkspacePath()
	if _, err := os.Stat(workspace); err == nil {
		fmt.Println("Workspace:", workspace, "✓")
	} else {
		fmt.Println("Workspace:", workspace, "✗ (created on first run)")
	}

	fmt.Printf("Default provider: %s\n", cfg.DefaultProvider)
	status := func(key string) string {
		if key != "" {
			return "✓"
		}
		return "not set"
	}
	fmt.Println("Claude API:", status(cfg.Providers.Claude.APIKey))
	fmt.Println("OpenAI API:", status(cfg.Providers.OpenAI.APIKey))
	if cfg.Providers.OpenAI.BaseURL != "" {
		fmt.Printf("OpenAI base URL: %s\n", cfg.Providers.OpenAI.BaseURL)
	}
	fmt.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("Max retries: %d, command timeout: %ds\n", cfg.Agent.MaxRetries, cfg.Agent.CommandTimeout)

	snapshot := state.NewManager(workspace).Snapshot()
	if snapshot.LastRunID != "" {
		fmt.Println("\nLast run:")
		fmt.Printf("  ID: %s\n", snapshot.LastRunID)
		fmt.Printf("  Status: %s\n", snapshot.LastStatus)
		fmt.Printf("  Prompt: %s\n", snapshot.LastPrompt)
		fmt.Printf("  When: %s\n", snapshot.Timestamp.Format("2006-01-02 15:04:05"))
	}
}

func modelsCmd() {
	cfg := mustLoadConfig()
	models.PrintList(cfg)
}
