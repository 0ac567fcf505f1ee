// Package agent implements the plan-execution-retry-validation loop: a
// Planner that turns user requests into structured plans, an Executor that
// runs them through sandboxed tools, a Validator that checks the outcome, and
// an Orchestrator that sequences the whole run.
package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskType identifies one kind of unit of work in a plan.
type TaskType string

const (
	TaskFileCreate          TaskType = "file_create"
	TaskFileEdit            TaskType = "file_edit"
	TaskDirectoryCreate     TaskType = "directory_create"
	TaskCommand             TaskType = "command"
	TaskInstallDependencies TaskType = "install_dependencies"
	TaskValidation          TaskType = "validation"
	TaskManual              TaskType = "manual"
)

// TaskDetails is the tagged per-type payload of a Task, decoded once at
// plan-parse time so executor branches receive exactly the fields their type
// guarantees.
type TaskDetails interface {
	isTaskDetails()
}

type FileDetails struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type DirectoryDetails struct {
	Path string `json:"path"`
}

type CommandDetails struct {
	Command string `json:"command"`
}

type InstallDetails struct {
	PackageManager string   `json:"package_manager"`
	Packages       []string `json:"packages"`
}

type ValidationDetails struct {
	ValidationType string `json:"validation_type"`
	Path           string `json:"path,omitempty"`
}

type ManualDetails struct {
	RawResponse string `json:"raw_response"`
}

// RawDetails preserves the payload of an unrecognized task type so the
// executor can report it.
type RawDetails struct {
	Raw json.RawMessage
}

func (FileDetails) isTaskDetails()       {}
func (DirectoryDetails) isTaskDetails()  {}
func (CommandDetails) isTaskDetails()    {}
func (InstallDetails) isTaskDetails()    {}
func (ValidationDetails) isTaskDetails() {}
func (ManualDetails) isTaskDetails()     {}
func (RawDetails) isTaskDetails()        {}

func (d RawDetails) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("{}"), nil
	}
	return d.Raw, nil
}

// Task is one typed unit of work. task_id is expected unique within a plan
// but uniqueness is not enforced.
type Task struct {
	TaskID      int         `json:"task_id"`
	Description string      `json:"description"`
	Type        TaskType    `json:"type"`
	Details     TaskDetails `json:"details"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskID      int             `json:"task_id"`
		Description string          `json:"description"`
		Type        TaskType        `json:"type"`
		Details     json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	details, err := decodeDetails(raw.Type, raw.Details)
	if err != nil {
		return fmt.Errorf("task %d: %w", raw.TaskID, err)
	}

	t.TaskID = raw.TaskID
	t.Description = raw.Description
	t.Type = raw.Type
	t.Details = details
	return nil
}

func decodeDetails(taskType TaskType, raw json.RawMessage) (TaskDetails, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch taskType {
	case TaskFileCreate, TaskFileEdit:
		var d FileDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		return d, nil
	case TaskDirectoryCreate:
		var d DirectoryDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		return d, nil
	case TaskCommand:
		var d CommandDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		return d, nil
	case TaskInstallDependencies:
		var d InstallDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		if d.PackageManager == "" {
			d.PackageManager = "pip"
		}
		return d, nil
	case TaskValidation:
		var d ValidationDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		return d, nil
	case TaskManual:
		var d ManualDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", taskType, err)
		}
		return d, nil
	default:
		return RawDetails{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// Plan is the structured, ordered task list derived from a user request.
// Task order is execution order; there is no dependency graph. A plan is
// created once per request and never mutated.
type Plan struct {
	Analysis        string `json:"analysis"`
	Tasks           []Task `json:"tasks"`
	ExpectedOutcome string `json:"expected_outcome"`
	RawResponse     string `json:"raw_response,omitempty"`
}

// TaskResult records one execution attempt of one task.
type TaskResult struct {
	TaskID      int       `json:"task_id"`
	Description string    `json:"description"`
	Type        TaskType  `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"` // "success" or "error"
	Error       string    `json:"error,omitempty"`
	Action      string    `json:"action,omitempty"`
	Path        string    `json:"path,omitempty"`
	Command     string    `json:"command,omitempty"`
	ReturnCode  int       `json:"returncode,omitempty"`
	Stdout      string    `json:"stdout,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
	Exists      *bool     `json:"exists,omitempty"`
	Message     string    `json:"message,omitempty"`
	TimedOut    bool      `json:"timed_out,omitempty"`
	Violation   bool      `json:"violation,omitempty"`
}

func (r TaskResult) OK() bool { return r.Status == "success" }

// FailedTask pairs a task with the error of its final attempt. Earlier
// attempts' errors are discarded.
type FailedTask struct {
	Task      Task   `json:"task"`
	LastError string `json:"last_error"`
}

// ExecutionSummary reports a whole-plan execution. Results holds the last
// attempt per task; ExecutionLog holds every attempt in order.
type ExecutionSummary struct {
	PlanAnalysis    string       `json:"plan_analysis"`
	ExpectedOutcome string       `json:"expected_outcome"`
	TotalTasks      int          `json:"total_tasks"`
	SuccessfulTasks int          `json:"successful_tasks"`
	FailedTasks     []FailedTask `json:"failed_tasks"`
	Results         []TaskResult `json:"results"`
	ExecutionLog    []TaskResult `json:"execution_log"`
}

// Fix suggestion types.
const (
	FixFileEdit   = "file_edit"
	FixCommand    = "command"
	FixManual     = "manual"
	FixDependency = "dependency"
)

type FixDetails struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
	Command string `json:"command,omitempty"`
}

// FixSuggestion is a proposed corrective action for a failed task.
type FixSuggestion struct {
	Analysis   string     `json:"analysis"`
	FixType    string     `json:"fix_type"`
	FixDetails FixDetails `json:"fix_details"`
	Err        string     `json:"error,omitempty"`
}

// ValidationReport partitions expected paths into existing and missing.
type ValidationReport struct {
	Valid         bool     `json:"valid"`
	ExistingFiles []string `json:"existing_files"`
	MissingFiles  []string `json:"missing_files"`
}

type SyntaxReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type TestReport struct {
	Passed bool   `json:"passed"`
	Output string `json:"output,omitempty"`
	Errors string `json:"errors,omitempty"`
}

// LLMReview is the outcome of a code-quality review by the completion
// backend. A failed review call degrades to Valid=true so a broken reviewer
// never blocks a run.
type LLMReview struct {
	Valid       bool     `json:"valid"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Err         string   `json:"error,omitempty"`
}

type ComprehensiveReport struct {
	OverallValid  bool             `json:"overall_valid"`
	FileStructure ValidationReport `json:"file_structure"`
	Tests         *TestReport      `json:"tests,omitempty"`
}
