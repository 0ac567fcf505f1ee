package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/04arvind/newla/pkg/safety"
)

const defaultCommandTimeout = 30 * time.Second

// ShellResult is the uniform result of a shell execution.
type ShellResult struct {
	Status     string `json:"status"` // "success" or "error"
	Action     string `json:"action"`
	Command    string `json:"command"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Error      string `json:"error,omitempty"`
	Violation  bool   `json:"violation,omitempty"`
}

func (r ShellResult) OK() bool { return r.Status == "success" }

// ShellTool executes commands inside the workspace directory, pre-checked by
// the safety guard and bounded by a wall-clock timeout.
type ShellTool struct {
	root    string
	timeout time.Duration
}

func NewShellTool(root string, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &ShellTool{root: root, timeout: timeout}
}

func (t *ShellTool) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		t.timeout = timeout
	}
}

// Execute runs command through sh -c in the workspace root. A command that
// fails the safety guard never spawns a process.
func (t *ShellTool) Execute(ctx context.Context, command string) ShellResult {
	const action = "execute_command"

	if err := safety.ValidateCommand(command); err != nil {
		return ShellResult{
			Status:    "error",
			Action:    action,
			Command:   command,
			Error:     err.Error(),
			Violation: true,
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = t.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if cmdCtx.Err() == context.DeadlineExceeded {
		return ShellResult{
			Status:   "error",
			Action:   action,
			Command:  command,
			TimedOut: true,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Error:    fmt.Sprintf("command timed out after %v", t.timeout),
		}
	}

	result := ShellResult{
		Action:  action,
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = "error"
			result.ReturnCode = exitErr.ExitCode()
			result.Error = fmt.Sprintf("command exited with code %d", exitErr.ExitCode())
			return result
		}
		result.Status = "error"
		result.ReturnCode = -1
		result.Error = err.Error()
		return result
	}

	result.Status = "success"
	result.ReturnCode = 0
	return result
}

// InstallDependencies builds and runs a package-manager invocation. Only pip
// and npm are supported.
func (t *ShellTool) InstallDependencies(ctx context.Context, packageManager string, packages []string) ShellResult {
	var command string
	switch packageManager {
	case "pip":
		command = "pip install " + strings.Join(packages, " ")
	case "npm":
		command = "npm install " + strings.Join(packages, " ")
	default:
		return ShellResult{
			Status: "error",
			Action: "install_dependencies",
			Error:  fmt.Sprintf("unsupported package manager: %s", packageManager),
		}
	}
	return t.Execute(ctx, command)
}
