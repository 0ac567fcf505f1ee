// Newla - local autonomous build agent
// Describe what you want built; the agent plans, executes, and validates it
// inside a sandboxed workspace.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/providers"
)

var (
	version   = "dev"
	buildTime string
	goVersion string
)

const logo = "🛠️"
const displayName = "Newla"
const cliName = "newla"

func invokedCLIName() string {
	if len(os.Args) == 0 {
		return cliName
	}
	base := strings.ToLower(filepath.Base(os.Args[0]))
	if strings.HasPrefix(base, cliName) {
		return base
	}
	return cliName
}

func printVersion() {
	fmt.Printf("%s %s v%s\n", logo, displayName, version)
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd()
	case "run":
		runCmd()
	case "console":
		consoleCmd()
	case "serve", "gateway":
		serveCmd()
	case "status":
		statusCmd()
	case "models":
		modelsCmd()
	case "backup":
		backupCmd()
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	commandName := invokedCLIName()
	fmt.Printf("%s %s - Local autonomous build agent v%s\n\n", logo, displayName, version)
	fmt.Printf("Usage: %s <command>\n", commandName)
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create config and scaffold the workspace")
	fmt.Println("  run         Run one build request end to end")
	fmt.Println("  console     Interactive console (chat + build requests)")
	fmt.Println("  serve       Start the HTTP gateway")
	fmt.Println("  status      Show config, workspace, and last run")
	fmt.Println("  models      List providers and their models")
	fmt.Println("  backup      Archive config and workspace files")
	fmt.Println("  version     Show version information")
	fmt.Println()
	fmt.Println("Run flags:")
	fmt.Println("  --provider <name>  Use a specific provider for this run")
	fmt.Println("  --tui              Show live progress in a terminal UI")
	fmt.Println("  --debug            Enable debug logging")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	logger.SetLevelFromString(cfg.Logging.Level)
	return cfg, nil
}

func mustLoadConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustRegistry(cfg *config.Config) *providers.Registry {
	registry, err := providers.NewRegistry(cfg)
	if err != nil {
		fmt.Printf("Error creating providers: %v\n", err)
		fmt.Printf("Set an API key (e.g. CLAUDE_API_KEY) or edit %s\n", config.DefaultConfigPath())
		os.Exit(1)
	}
	return registry
}
