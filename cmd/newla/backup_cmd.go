package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/04arvind/newla/pkg/backup"
	"github.com/04arvind/newla/pkg/config"
)

func backupCmd() {
	args := os.Args[2:]
	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		backupHelp()
		return
	}

	if len(args) > 0 && args[0] == "list" {
		if len(args) < 2 {
			fmt.Printf("Usage: %s backup list <archive.tar.gz>\n", invokedCLIName())
			os.Exit(1)
		}
		names, err := backup.List(args[1])
		if err != nil {
			fmt.Printf("Error reading archive: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	opts := backup.Options{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				opts.OutputPath = args[i+1]
				i++
			}
		case "--with-audit":
			opts.WithAudit = true
		default:
			fmt.Printf("Unknown flag: %s\n", args[i])
			backupHelp()
			os.Exit(1)
		}
	}

	cfg := mustLoadConfig()
	configPath := config.DefaultConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	entries, err := backup.CollectEntries(cfg, configPath, opts.WithAudit)
	if err != nil {
		fmt.Printf("Error collecting files: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to back up yet.")
		return
	}

	output := opts.OutputPath
	if output == "" {
		output = backup.DefaultPath(filepath.Dir(cfg.WorkspacePath()))
	}

	if err := backup.Create(output, entries); err != nil {
		fmt.Printf("Error creating backup: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Backup written to %s\n", output)
	for _, entry := range entries {
		fmt.Printf("  %s\n", entry.ArchivePath)
	}
}

func backupHelp() {
	commandName := invokedCLIName()
	fmt.Println("\nBackup config and workspace files:")
	fmt.Printf("  %s backup [flags]\n", commandName)
	fmt.Printf("  %s backup list <archive.tar.gz>\n", commandName)
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -o, --output <path>  Archive path (default: timestamped, next to the workspace)")
	fmt.Println("  --with-audit         Include the .newla audit/state directory")
}
