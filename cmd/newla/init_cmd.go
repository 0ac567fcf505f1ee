package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/workspacetpl"
)

func initCmd() {
	configPath := config.DefaultConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		// Never overwrite an existing config; it may hold credentials.
		fmt.Printf("Config already exists at %s (preserving it)\n", configPath)
	} else {
		if err := writeDefaultConfig(configPath); err != nil {
			fmt.Printf("Error creating config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created config at %s\n", configPath)
	}

	cfg := mustLoadConfig()
	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(workspace, 0755); err != nil {
		fmt.Printf("Error creating workspace: %v\n", err)
		os.Exit(1)
	}
	if err := workspacetpl.Scaffold(workspace); err != nil {
		fmt.Printf("Error scaffolding workspace: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Workspace ready at %s\n", workspace)

	fmt.Printf("\n%s %s is ready!\n", logo, displayName)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Set an API key: export CLAUDE_API_KEY=... (or edit %s)\n", configPath)
	fmt.Printf("  2. Try a build: %s run \"create a flask hello world app\"\n", invokedCLIName())
	fmt.Printf("  3. Or start the gateway: %s serve\n", invokedCLIName())
}

func writeDefaultConfig(configPath string) error {
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(config.DefaultConfig(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, append(data, '\n'), 0600)
}
