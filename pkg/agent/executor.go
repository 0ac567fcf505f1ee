package agent

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/04arvind/newla/pkg/audit"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/tools"
)

// internalDir holds agent bookkeeping inside the workspace; it is excluded
// from listings and validation.
const internalDir = ".newla"

// Executor runs plan tasks through the sandboxed tools with bounded retry.
// It keeps an append-only log of every attempt and mirrors it to the audit
// sink.
type Executor struct {
	workspace  string
	fsTool     *tools.FilesystemTool
	shell      *tools.ShellTool
	maxRetries int

	mu    sync.Mutex
	log   []TaskResult
	sink  *audit.JSONLSink
	onLog func(TaskResult)
}

func NewExecutor(workspace string, maxRetries int, commandTimeout time.Duration) (*Executor, error) {
	fsTool, err := tools.NewFilesystemTool(workspace)
	if err != nil {
		return nil, err
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	e := &Executor{
		workspace:  fsTool.Root(),
		fsTool:     fsTool,
		shell:      tools.NewShellTool(fsTool.Root(), commandTimeout),
		maxRetries: maxRetries,
	}

	sink, err := audit.NewJSONLSink(filepath.Join(fsTool.Root(), internalDir, "execution-log.jsonl"))
	if err != nil {
		logger.WarnCF("executor", "Audit sink unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		e.sink = sink
	}
	return e, nil
}

func (e *Executor) Workspace() string { return e.workspace }

// Close flushes and stops the audit sink. The executor must not run tasks
// afterwards.
func (e *Executor) Close() {
	e.mu.Lock()
	sink := e.sink
	e.sink = nil
	e.mu.Unlock()

	if sink != nil {
		sink.Close()
	}
}

// SetResultHook registers a callback invoked for every recorded attempt.
func (e *Executor) SetResultHook(hook func(TaskResult)) {
	e.mu.Lock()
	e.onLog = hook
	e.mu.Unlock()
}

// ExecutionLog returns a copy of every attempt recorded so far.
func (e *Executor) ExecutionLog() []TaskResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TaskResult, len(e.log))
	copy(out, e.log)
	return out
}

func (e *Executor) record(result TaskResult) {
	e.mu.Lock()
	e.log = append(e.log, result)
	hook := e.onLog
	sink := e.sink
	e.mu.Unlock()

	if sink != nil {
		_ = sink.Write(result)
	}
	if hook != nil {
		hook(result)
	}
}

// ExecuteTask runs a single task once and records the attempt.
func (e *Executor) ExecuteTask(ctx context.Context, task Task) TaskResult {
	result := TaskResult{
		TaskID:      task.TaskID,
		Description: task.Description,
		Type:        task.Type,
		Timestamp:   time.Now().UTC(),
	}

	switch details := task.Details.(type) {
	case FileDetails:
		if task.Type != TaskFileCreate && task.Type != TaskFileEdit {
			e.fail(&result, fmt.Sprintf("unknown task type: %s", task.Type))
			break
		}
		fr := e.fsTool.WriteFile(details.Path, details.Content)
		e.applyFS(&result, fr)
	case DirectoryDetails:
		fr := e.fsTool.CreateDirectory(details.Path)
		e.applyFS(&result, fr)
	case CommandDetails:
		sr := e.shell.Execute(ctx, details.Command)
		e.applyShell(&result, sr)
	case InstallDetails:
		sr := e.shell.InstallDependencies(ctx, details.PackageManager, details.Packages)
		e.applyShell(&result, sr)
	case ValidationDetails:
		e.applyValidation(&result, details)
	default:
		e.fail(&result, fmt.Sprintf("unknown task type: %s", task.Type))
	}

	e.record(result)
	return result
}

func (e *Executor) applyFS(result *TaskResult, fr tools.FSResult) {
	result.Action = fr.Action
	result.Path = fr.Path
	result.Violation = fr.Violation
	if fr.OK() {
		result.Status = "success"
		return
	}
	result.Status = "error"
	result.Error = fr.Error
}

func (e *Executor) applyShell(result *TaskResult, sr tools.ShellResult) {
	result.Action = sr.Action
	result.Command = sr.Command
	result.ReturnCode = sr.ReturnCode
	result.Stdout = sr.Stdout
	result.Stderr = sr.Stderr
	result.TimedOut = sr.TimedOut
	result.Violation = sr.Violation
	if sr.OK() {
		result.Status = "success"
		return
	}
	result.Status = "error"
	result.Error = sr.Error
}

func (e *Executor) applyValidation(result *TaskResult, details ValidationDetails) {
	result.Action = "validation"
	switch details.ValidationType {
	case "file_exists":
		exists := e.fsTool.FileExists(details.Path)
		result.Path = details.Path
		result.Exists = &exists
		if exists {
			result.Status = "success"
			return
		}
		result.Status = "error"
		result.Error = fmt.Sprintf("file does not exist: %s", details.Path)
	default:
		// Unrecognized validation types pass through so a creative planner
		// cannot wedge a run.
		result.Status = "success"
		result.Message = fmt.Sprintf("validation type %q not checked", details.ValidationType)
	}
}

func (e *Executor) fail(result *TaskResult, msg string) {
	result.Status = "error"
	result.Error = msg
}

// ExecutePlan runs every task in plan order with up to maxRetries attempts
// each. Tasks are never skipped on failure; a sandbox violation ends retry
// for that task immediately.
func (e *Executor) ExecutePlan(ctx context.Context, plan *Plan) *ExecutionSummary {
	summary := &ExecutionSummary{
		PlanAnalysis:    plan.Analysis,
		ExpectedOutcome: plan.ExpectedOutcome,
		TotalTasks:      len(plan.Tasks),
	}

	for _, task := range plan.Tasks {
		logger.InfoCF("executor", "Executing task", map[string]interface{}{
			"task_id": task.TaskID,
			"type":    string(task.Type),
		})

		var last TaskResult
		success := false
		for attempt := 1; attempt <= e.maxRetries; attempt++ {
			last = e.ExecuteTask(ctx, task)
			if last.OK() {
				success = true
				break
			}
			if last.Violation {
				logger.ErrorCF("executor", "Sandbox violation, not retrying", map[string]interface{}{
					"task_id": task.TaskID,
					"error":   last.Error,
				})
				break
			}
			logger.WarnCF("executor", "Task attempt failed", map[string]interface{}{
				"task_id": task.TaskID,
				"attempt": attempt,
				"error":   last.Error,
			})
		}

		summary.Results = append(summary.Results, last)
		if !success {
			summary.FailedTasks = append(summary.FailedTasks, FailedTask{
				Task:      task,
				LastError: last.Error,
			})
		}
	}

	summary.SuccessfulTasks = summary.TotalTasks - len(summary.FailedTasks)
	summary.ExecutionLog = e.ExecutionLog()
	return summary
}

// WorkspaceFiles lists every file under the workspace, relative to it, in
// sorted order. Agent bookkeeping under .newla is excluded.
func (e *Executor) WorkspaceFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(e.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == internalDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(e.workspace, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadFileContent reads a workspace file through the sandboxed tool.
func (e *Executor) ReadFileContent(path string) (string, error) {
	fr := e.fsTool.ReadFile(path)
	if !fr.OK() {
		return "", fmt.Errorf("%s", fr.Error)
	}
	return fr.Content, nil
}

// RunCommand exposes sandboxed shell execution for fix passes.
func (e *Executor) RunCommand(ctx context.Context, command string) tools.ShellResult {
	return e.shell.Execute(ctx, command)
}

// WriteFile exposes sandboxed file writes for fix passes.
func (e *Executor) WriteFile(path, content string) tools.FSResult {
	return e.fsTool.WriteFile(path, content)
}

// FileExists reports whether a workspace-relative path exists.
func (e *Executor) FileExists(path string) bool {
	return e.fsTool.FileExists(path)
}

// ReadAllFiles returns path -> content for every workspace file, skipping
// files that cannot be read as text.
func (e *Executor) ReadAllFiles() (map[string]string, error) {
	paths, err := e.WorkspaceFiles()
	if err != nil {
		return nil, err
	}
	contents := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(e.workspace, filepath.FromSlash(p)))
		if err != nil {
			continue
		}
		if strings.ContainsRune(string(data), 0) {
			continue
		}
		contents[p] = string(data)
	}
	return contents, nil
}
