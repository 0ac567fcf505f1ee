package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := NewExecutor(t.TempDir(), 3, 5*time.Second)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return e
}

func TestExecuteTask_FileCreate(t *testing.T) {
	e := newTestExecutor(t)

	result := e.ExecuteTask(context.Background(), Task{
		TaskID:      1,
		Description: "Write greeting",
		Type:        TaskFileCreate,
		Details:     FileDetails{Path: "hello.txt", Content: "hello world"},
	})

	if !result.OK() {
		t.Fatalf("Expected success, got %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(e.Workspace(), "hello.txt"))
	if err != nil {
		t.Fatalf("Read created file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("Content = %q", data)
	}
}

func TestExecuteTask_DirectoryAndValidation(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	if result := e.ExecuteTask(ctx, Task{
		TaskID: 1, Type: TaskDirectoryCreate,
		Details: DirectoryDetails{Path: "src/app"},
	}); !result.OK() {
		t.Fatalf("Directory create failed: %+v", result)
	}

	result := e.ExecuteTask(ctx, Task{
		TaskID: 2, Type: TaskValidation,
		Details: ValidationDetails{ValidationType: "file_exists", Path: "src/app"},
	})
	if !result.OK() {
		t.Fatalf("Validation failed: %+v", result)
	}
	if result.Exists == nil || !*result.Exists {
		t.Errorf("Expected exists=true, got %+v", result.Exists)
	}

	missing := e.ExecuteTask(ctx, Task{
		TaskID: 3, Type: TaskValidation,
		Details: ValidationDetails{ValidationType: "file_exists", Path: "nope.txt"},
	})
	if missing.OK() {
		t.Errorf("Expected missing file validation to fail: %+v", missing)
	}
}

func TestExecuteTask_UnknownType(t *testing.T) {
	e := newTestExecutor(t)

	result := e.ExecuteTask(context.Background(), Task{
		TaskID: 1, Type: "teleport",
		Details: RawDetails{},
	})
	if result.OK() {
		t.Fatalf("Expected unknown type to fail: %+v", result)
	}
}

func TestExecuteTask_ViolationFlag(t *testing.T) {
	e := newTestExecutor(t)

	result := e.ExecuteTask(context.Background(), Task{
		TaskID: 1, Type: TaskFileCreate,
		Details: FileDetails{Path: "../escape.txt", Content: "nope"},
	})
	if result.OK() {
		t.Fatalf("Expected traversal to fail: %+v", result)
	}
	if !result.Violation {
		t.Errorf("Expected violation flag: %+v", result)
	}
}

func TestExecutePlan_Success(t *testing.T) {
	e := newTestExecutor(t)

	plan := &Plan{
		Analysis: "two tasks",
		Tasks: []Task{
			{TaskID: 1, Type: TaskFileCreate, Details: FileDetails{Path: "hello.txt", Content: "hi"}},
			{TaskID: 2, Type: TaskCommand, Details: CommandDetails{Command: "cat hello.txt"}},
		},
		ExpectedOutcome: "greeting exists",
	}

	summary := e.ExecutePlan(context.Background(), plan)
	if summary.TotalTasks != 2 || summary.SuccessfulTasks != 2 {
		t.Fatalf("Summary = %+v", summary)
	}
	if len(summary.FailedTasks) != 0 {
		t.Errorf("FailedTasks = %+v", summary.FailedTasks)
	}
	if len(summary.Results) != 2 {
		t.Errorf("Results = %d", len(summary.Results))
	}
	if len(summary.ExecutionLog) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(summary.ExecutionLog))
	}
}

func TestExecutePlan_RetriesThenRecordsFailure(t *testing.T) {
	e := newTestExecutor(t)

	plan := &Plan{
		Tasks: []Task{
			// Allowed command that exits nonzero, so every attempt fails
			// without tripping the sandbox.
			{TaskID: 1, Type: TaskCommand, Details: CommandDetails{Command: "ls no-such-file-here"}},
		},
	}

	summary := e.ExecutePlan(context.Background(), plan)
	if summary.SuccessfulTasks != 0 {
		t.Fatalf("Summary = %+v", summary)
	}
	if len(summary.FailedTasks) != 1 {
		t.Fatalf("FailedTasks = %+v", summary.FailedTasks)
	}
	if len(summary.ExecutionLog) != 3 {
		t.Errorf("Expected 3 attempts in log, got %d", len(summary.ExecutionLog))
	}
	if summary.FailedTasks[0].LastError == "" {
		t.Error("Expected last error to be recorded")
	}
}

func TestExecutePlan_EventualSuccessWithinRetries(t *testing.T) {
	e := newTestExecutor(t)

	// Succeeds only on the third attempt: each run appends a line, then the
	// test asserts at least three lines exist.
	cmd := "echo attempt >> tries.txt; test $(wc -l < tries.txt) -ge 3"
	plan := &Plan{
		Tasks: []Task{
			{TaskID: 1, Type: TaskCommand, Details: CommandDetails{Command: cmd}},
		},
	}

	summary := e.ExecutePlan(context.Background(), plan)
	if summary.SuccessfulTasks != 1 || len(summary.FailedTasks) != 0 {
		t.Fatalf("Summary = %+v", summary)
	}
	if len(summary.ExecutionLog) != 3 {
		t.Errorf("Expected 3 attempts, got %d", len(summary.ExecutionLog))
	}
	if !summary.Results[0].OK() {
		t.Errorf("Final result should be the successful attempt: %+v", summary.Results[0])
	}
}

func TestExecutePlan_ViolationNotRetried(t *testing.T) {
	e := newTestExecutor(t)

	plan := &Plan{
		Tasks: []Task{
			{TaskID: 1, Type: TaskCommand, Details: CommandDetails{Command: "rm -rf /"}},
		},
	}

	summary := e.ExecutePlan(context.Background(), plan)
	if len(summary.FailedTasks) != 1 {
		t.Fatalf("Summary = %+v", summary)
	}
	if len(summary.ExecutionLog) != 1 {
		t.Errorf("Violation should not be retried; log has %d entries", len(summary.ExecutionLog))
	}
	if !summary.Results[0].Violation {
		t.Errorf("Expected violation flag: %+v", summary.Results[0])
	}
}

func TestWorkspaceFiles_SkipsInternalDir(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	e.ExecuteTask(ctx, Task{TaskID: 1, Type: TaskFileCreate, Details: FileDetails{Path: "a.txt", Content: "a"}})
	e.ExecuteTask(ctx, Task{TaskID: 2, Type: TaskFileCreate, Details: FileDetails{Path: "sub/b.txt", Content: "b"}})

	files, err := e.WorkspaceFiles()
	if err != nil {
		t.Fatalf("WorkspaceFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "a.txt" || files[1] != "sub/b.txt" {
		t.Errorf("Files = %v", files)
	}
}

func TestExecutor_AuditLogWritten(t *testing.T) {
	e := newTestExecutor(t)

	e.ExecuteTask(context.Background(), Task{
		TaskID: 1, Type: TaskFileCreate,
		Details: FileDetails{Path: "a.txt", Content: "a"},
	})

	// The audit sink writes asynchronously.
	path := filepath.Join(e.Workspace(), internalDir, "execution-log.jsonl")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Audit log never written")
}
