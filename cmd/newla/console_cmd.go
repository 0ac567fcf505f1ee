package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/session"
	"github.com/04arvind/newla/pkg/state"
)

const consoleSystemPrompt = "You are a helpful build assistant. Answer questions about software " +
	"projects concisely. When the user wants something built, suggest they prefix the request " +
	"with /build so the agent plans and executes it."

func consoleCmd() {
	sessionKey := "console-default"
	providerName := ""

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			logger.SetLevel(logger.DEBUG)
		case "-s", "--session":
			if i+1 < len(args) {
				sessionKey = args[i+1]
				i++
			}
		case "--provider", "-p":
			if i+1 < len(args) {
				providerName = args[i+1]
				i++
			}
		}
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
	stateMgr := state.NewManager(cfg.WorkspacePath())

	sessions := session.NewSessionManager(filepath.Join(cfg.WorkspacePath(), ".newla", "sessions"))

	fmt.Printf("%s %s console — provider: %s (Ctrl+C to exit)\n", logo, displayName, provider.Name())
	fmt.Println("Commands: /build <request>, /history, /clear, exit")
	fmt.Println()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s You: ", logo),
		HistoryFile:     filepath.Join(os.TempDir(), ".newla_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch {
		case input == "exit" || input == "quit":
			fmt.Println("Goodbye!")
			return

		case input == "/history":
			for _, msg := range sessions.GetHistory(sessionKey) {
				fmt.Printf("  [%s] %s\n", msg.Role, msg.Content)
			}

		case input == "/clear":
			sessions.ClearHistory(sessionKey)
			fmt.Println("History cleared.")

		case strings.HasPrefix(input, "/build "):
			request := strings.TrimSpace(strings.TrimPrefix(input, "/build "))
			if request == "" {
				fmt.Println("Usage: /build <request>")
				continue
			}
			result := orchestrator.Run(context.Background(), request)
			if err := stateMgr.RecordRun(result.RunID, result.Status, result.UserPrompt); err != nil {
				logger.WarnCF("cli", "State update failed", map[string]interface{}{"error": err.Error()})
			}
			fmt.Println()
			printRunResult(result)
			fmt.Println()

		default:
			sessions.AddMessage(sessionKey, "user", input)
			response, err := provider.CallWithHistory(context.Background(), consoleSystemPrompt, sessions.GetHistory(sessionKey))
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			sessions.AddMessage(sessionKey, "assistant", response)
			if err := sessions.Save(sessionKey); err != nil {
				logger.WarnCF("cli", "Session save failed", map[string]interface{}{"error": err.Error()})
			}
			fmt.Printf("\n%s %s\n\n", logo, response)
		}
	}
}
