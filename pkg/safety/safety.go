// Package safety enforces the sandbox boundary for the agent: every path and
// shell command is validated here before any tool touches the filesystem or
// spawns a process. Checks fail closed.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Violation kinds.
const (
	KindPath          = "path"
	KindCommand       = "command"
	KindFileOperation = "file_operation"
)

// ViolationError marks a sandbox violation. Violations are fatal to the
// calling operation and are never retried.
type ViolationError struct {
	Kind   string
	Detail string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("sandbox violation (%s): %s", e.Kind, e.Detail)
}

func violation(kind, format string, args ...interface{}) *ViolationError {
	return &ViolationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err is a sandbox violation.
func IsViolation(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*ViolationError)
	return ok
}

// forbiddenPatterns are substrings that reject a command outright. Matching
// is coarse on purpose: cheap and auditable, at the cost of false positives
// on benign text and false negatives on equivalent spellings.
var forbiddenPatterns = []string{
	"..",
	"~",
	"rm -rf",
	"shutdown",
	"kill -9",
	"reboot",
	"sudo",
	"chmod 777",
	"mkfs",
	"dd if=",
	":(){ :|:& };:", // fork bomb
}

// allowedCommands is the fixed allow-list of program names. The first
// whitespace-delimited token of a command must prefix-match one entry.
var allowedCommands = []string{
	"python",
	"node",
	"npm",
	"pip",
	"go",
	"git",
	"ls",
	"cat",
	"echo",
	"mkdir",
	"touch",
	"cd",
	"pwd",
	"which",
	"uvicorn",
	"flask",
	"serve",
	"http-server",
}

// protectedFiles are base names that may never be deleted from a workspace.
var protectedFiles = map[string]bool{
	".env":        true,
	"config.json": true,
	"config.py":   true,
	"main.py":     true,
	"__init__.py": true,
}

// ValidatePath checks that path stays inside root and returns the joined
// absolute path. It rejects absolute paths, any literal parent-directory
// segment, and home-directory tokens before resolving symbolic links.
func ValidatePath(path, root string) (string, error) {
	if filepath.IsAbs(path) {
		return "", violation(KindPath, "absolute path not allowed: %s", path)
	}
	if strings.Contains(path, "..") {
		return "", violation(KindPath, "path traversal (..) not allowed: %s", path)
	}
	if strings.Contains(path, "~") {
		return "", violation(KindPath, "home directory (~) not allowed: %s", path)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", violation(KindPath, "failed to resolve workspace root: %v", err)
	}
	realRoot := absRoot
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		realRoot = filepath.Clean(resolved)
	}

	full := filepath.Clean(filepath.Join(absRoot, path))
	if !isWithin(full, absRoot) {
		return "", violation(KindPath, "path escapes workspace: %s", path)
	}

	// Resolve symbolic references. For paths that do not exist yet, resolve
	// the nearest existing ancestor so a symlinked directory cannot smuggle
	// writes outside the workspace.
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		if !isWithin(resolved, realRoot) {
			return "", violation(KindPath, "path escapes workspace: %s", path)
		}
	} else if os.IsNotExist(err) {
		ancestor, aerr := resolveExistingAncestor(filepath.Dir(full))
		if aerr == nil && !isWithin(ancestor, realRoot) {
			return "", violation(KindPath, "path escapes workspace: %s", path)
		}
		if aerr != nil && !os.IsNotExist(aerr) {
			return "", violation(KindPath, "failed to resolve path %s: %v", path, aerr)
		}
	} else {
		return "", violation(KindPath, "failed to resolve path %s: %v", path, err)
	}

	return full, nil
}

// ValidateCommand checks a shell command against the forbidden-substring set
// and the program allow-list.
func ValidateCommand(cmd string) error {
	lower := strings.ToLower(strings.TrimSpace(cmd))

	for _, pattern := range forbiddenPatterns {
		if strings.Contains(lower, pattern) {
			return violation(KindCommand, "unsafe command: %q found in %q", pattern, cmd)
		}
	}

	fields := strings.Fields(cmd)
	first := ""
	if len(fields) > 0 {
		first = fields[0]
	}
	for _, allowed := range allowedCommands {
		if strings.HasPrefix(first, allowed) {
			return nil
		}
	}
	return violation(KindCommand, "command %q is not in the allowed list", first)
}

// ValidateFileOperation applies an extra guard for destructive operations:
// protected file names may never be deleted.
func ValidateFileOperation(path, operation string) error {
	if operation != "delete" {
		return nil
	}
	if protectedFiles[filepath.Base(path)] {
		return violation(KindFileOperation, "cannot delete protected file: %s", path)
	}
	return nil
}

func isWithin(candidate, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(candidate))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func resolveExistingAncestor(path string) (string, error) {
	for current := filepath.Clean(path); ; current = filepath.Dir(current) {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return resolved, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if filepath.Dir(current) == current {
			return "", os.ErrNotExist
		}
	}
}
