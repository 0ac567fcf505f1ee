package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/04arvind/newla/cmd/newla/tui"
	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/state"
)

func runCmd() {
	providerName := ""
	useTUI := false
	var promptParts []string

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--provider", "-p":
			if i+1 < len(args) {
				providerName = args[i+1]
				i++
			}
		case "--tui":
			useTUI = true
		case "--debug", "-d":
			logger.SetLevel(logger.DEBUG)
		case "--help", "-h":
			runHelp()
			return
		default:
			promptParts = append(promptParts, args[i])
		}
	}

	prompt := strings.TrimSpace(strings.Join(promptParts, " "))
	if prompt == "" {
		fmt.Println("Error: no build request given")
		runHelp()
		os.Exit(1)
	}

	cfg := mustLoadConfig()
	registry := mustRegistry(cfg)

	provider, err := registry.Get(providerName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	orchestrator, err := agent.NewOrchestrator(cfg, provider)
	if err != nil {
		fmt.Printf("Error initializing agent: %v\n", err)
		os.Exit(1)
	}

	var result *agent.RunResult
	if useTUI {
		monitor := tui.NewMonitor(prompt)
		orchestrator.AddEventSink(monitor)
		done := make(chan struct{})
		go func() {
			result = orchestrator.Run(context.Background(), prompt)
			close(done)
		}()
		if err := monitor.Run(); err != nil {
			fmt.Printf("Monitor error: %v\n", err)
		}
		<-done
	} else {
		fmt.Printf("%s Building: %s\n\n", logo, prompt)
		result = orchestrator.Run(context.Background(), prompt)
	}

	stateMgr := state.NewManager(cfg.WorkspacePath())
	if err := stateMgr.RecordRun(result.RunID, result.Status, result.UserPrompt); err != nil {
		logger.WarnCF("cli", "State update failed", map[string]interface{}{"error": err.Error()})
	}

	printRunResult(result)
	if result.Status == agent.StatusError {
		os.Exit(1)
	}
}

func printRunResult(result *agent.RunResult) {
	fmt.Printf("Run %s: %s\n", result.RunID, result.Status)
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
	if result.Execution != nil {
		fmt.Printf("Tasks: %d/%d succeeded\n", result.Execution.SuccessfulTasks, result.Execution.TotalTasks)
	}
	if len(result.FilesCreated) > 0 {
		fmt.Println("Files:")
		for _, file := range result.FilesCreated {
			fmt.Printf("  %s\n", file)
		}
	}
	for _, fix := range result.ErrorFixes {
		if fix.Applied {
			fmt.Printf("Fix applied for task %d: %s\n", fix.TaskID, fix.Suggestion.Analysis)
		} else {
			fmt.Printf("Task %d needs manual attention: %s\n", fix.TaskID, fix.Suggestion.Analysis)
		}
	}
	if result.Validation != nil && !result.Validation.OverallValid {
		fmt.Println("Validation found problems; inspect the workspace.")
	}
}

func runHelp() {
	commandName := invokedCLIName()
	fmt.Println("\nRun one build request end to end:")
	fmt.Printf("  %s run [flags] <request...>\n", commandName)
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --provider <name>  Use a specific provider (default from config)")
	fmt.Println("  --tui              Show live progress in a terminal UI")
	fmt.Println("  --debug            Enable debug logging")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s run \"create a flask hello world app\"\n", commandName)
	fmt.Printf("  %s run --provider openai --tui \"build a todo cli in python\"\n", commandName)
}
