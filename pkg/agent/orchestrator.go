package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/providers"
)

// Run statuses.
const (
	StatusStarted             = "started"
	StatusPlanning            = "planning"
	StatusExecution           = "execution"
	StatusErrorFixing         = "error_fixing"
	StatusValidation          = "validation"
	StatusSuccess             = "success"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusError               = "error"
)

// Event is one progress notification emitted during a run.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"` // "status", "task", "done"
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	TaskID    int       `json:"task_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives run events. Implementations must not block.
type EventSink interface {
	Emit(Event)
}

// FixOutcome records one corrective action taken for a failed task.
type FixOutcome struct {
	TaskID     int           `json:"task_id"`
	Suggestion FixSuggestion `json:"suggestion"`
	Applied    bool          `json:"applied"`
	Result     *TaskResult   `json:"result,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// RunResult is the full record of one request through the pipeline.
type RunResult struct {
	RunID        string               `json:"run_id"`
	UserPrompt   string               `json:"user_prompt"`
	Status       string               `json:"status"`
	Steps        []string             `json:"steps"`
	Plan         *Plan                `json:"plan,omitempty"`
	Execution    *ExecutionSummary    `json:"execution,omitempty"`
	ErrorFixes   []FixOutcome         `json:"error_fixes,omitempty"`
	Validation   *ComprehensiveReport `json:"validation,omitempty"`
	Review       *LLMReview           `json:"review,omitempty"`
	FilesCreated []string             `json:"files_created,omitempty"`
	Error        string               `json:"error,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
}

// Orchestrator sequences planning, execution, error fixing, and validation.
// One run at a time per workspace: the run lock and history store are shared
// by every Orchestrator built over the same workspace root, so runs cannot
// overlap even when several orchestrators (one per provider, synchronous and
// queued paths alike) point at the same tree.
type Orchestrator struct {
	cfg       *config.Config
	provider  providers.Provider
	planner   *Planner
	executor  *Executor
	validator *Validator
	history   *History

	runMu *sync.Mutex

	eventMu sync.Mutex
	sinks   []EventSink
}

var (
	workspaceLocks     sync.Map // workspace path -> *sync.Mutex
	workspaceHistories sync.Map // workspace path -> *History
)

func lockForWorkspace(workspace string) *sync.Mutex {
	mu, _ := workspaceLocks.LoadOrStore(filepath.Clean(workspace), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func historyForWorkspace(workspace string, limit int) *History {
	h, _ := workspaceHistories.LoadOrStore(filepath.Clean(workspace), NewHistory(limit))
	return h.(*History)
}

func NewOrchestrator(cfg *config.Config, provider providers.Provider) (*Orchestrator, error) {
	executor, err := NewExecutor(
		cfg.WorkspacePath(),
		cfg.Agent.MaxRetries,
		time.Duration(cfg.Agent.CommandTimeout)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		planner:   NewPlanner(provider),
		executor:  executor,
		validator: NewValidator(executor, provider),
		history:   historyForWorkspace(executor.Workspace(), cfg.Agent.HistoryLimit),
		runMu:     lockForWorkspace(executor.Workspace()),
	}, nil
}

// Close releases resources held by the orchestrator's executor (the audit
// sink's writer goroutine). The orchestrator must not run afterwards.
func (o *Orchestrator) Close() {
	o.executor.Close()
}

func (o *Orchestrator) Executor() *Executor { return o.executor }
func (o *Orchestrator) History() *History   { return o.history }

// AddEventSink registers a sink for run progress events.
func (o *Orchestrator) AddEventSink(sink EventSink) {
	o.eventMu.Lock()
	o.sinks = append(o.sinks, sink)
	o.eventMu.Unlock()
}

func (o *Orchestrator) emit(event Event) {
	event.Timestamp = time.Now().UTC()
	o.eventMu.Lock()
	sinks := make([]EventSink, len(o.sinks))
	copy(sinks, o.sinks)
	o.eventMu.Unlock()
	for _, sink := range sinks {
		sink.Emit(event)
	}
}

func (o *Orchestrator) step(result *RunResult, status, message string) {
	result.Status = status
	result.Steps = append(result.Steps, status)
	logger.InfoCF("orchestrator", message, map[string]interface{}{
		"run_id": result.RunID,
		"status": status,
	})
	o.emit(Event{RunID: result.RunID, Type: "status", Status: status, Message: message})
}

// Run processes one request end to end. It never returns an error: every
// failure is captured in the RunResult so callers always get a report.
func (o *Orchestrator) Run(ctx context.Context, prompt string) *RunResult {
	return o.RunWithID(ctx, uuid.NewString(), prompt)
}

// RunWithID runs with a caller-chosen run id, so a request acknowledged with
// an id before execution (the queued path) keeps that id in its events,
// history entry, and result.
func (o *Orchestrator) RunWithID(ctx context.Context, runID, prompt string) *RunResult {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if runID == "" {
		runID = uuid.NewString()
	}
	result := &RunResult{
		RunID:      runID,
		UserPrompt: prompt,
		StartedAt:  time.Now().UTC(),
	}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		o.history.Append(result)
		o.emit(Event{RunID: result.RunID, Type: "done", Status: result.Status})
	}()

	o.step(result, StatusStarted, "Run started")

	// Plan.
	o.step(result, StatusPlanning, "Creating plan")
	plan, err := o.planner.CreatePlan(ctx, prompt)
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Sprintf("planning failed: %v", err)
		logger.ErrorCF("orchestrator", "Planning failed", map[string]interface{}{
			"run_id": result.RunID,
			"error":  err.Error(),
		})
		return result
	}
	result.Plan = plan

	// Execute.
	o.step(result, StatusExecution, "Executing plan")
	result.Execution = o.executor.ExecutePlan(ctx, plan)

	// Fix pass for whatever failed.
	if len(result.Execution.FailedTasks) > 0 {
		o.step(result, StatusErrorFixing, "Attempting automated fixes")
		result.ErrorFixes = o.FixErrors(ctx, result.Execution.FailedTasks)
	}

	// Validate over what actually exists now.
	o.step(result, StatusValidation, "Validating result")
	files, err := o.executor.WorkspaceFiles()
	if err != nil {
		logger.WarnCF("orchestrator", "Workspace listing failed", map[string]interface{}{
			"run_id": result.RunID,
			"error":  err.Error(),
		})
		files = nil
	}
	result.FilesCreated = files
	validation := o.validator.ComprehensiveValidation(ctx, files, "")
	result.Validation = &validation

	if len(result.Execution.FailedTasks) == 0 && validation.OverallValid {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusCompletedWithErrors
	}
	result.Steps = append(result.Steps, result.Status)
	return result
}

// FixErrors performs a single corrective pass: one suggestion and at most one
// application per failed task. Unresolved tasks are reported for manual
// intervention, never re-fixed.
func (o *Orchestrator) FixErrors(ctx context.Context, failed []FailedTask) []FixOutcome {
	outcomes := make([]FixOutcome, 0, len(failed))
	for _, ft := range failed {
		suggestion := o.validator.AnalyzeError(ctx, ft)
		outcome := FixOutcome{TaskID: ft.Task.TaskID, Suggestion: suggestion}

		switch suggestion.FixType {
		case FixFileEdit:
			if suggestion.FixDetails.Path == "" {
				outcome.Message = "manual_intervention_required"
				break
			}
			fix := Task{
				TaskID:      ft.Task.TaskID,
				Description: fmt.Sprintf("Fix for task %d: %s", ft.Task.TaskID, suggestion.Analysis),
				Type:        TaskFileEdit,
				Details: FileDetails{
					Path:    suggestion.FixDetails.Path,
					Content: suggestion.FixDetails.Content,
				},
			}
			res := o.executor.ExecuteTask(ctx, fix)
			outcome.Applied = true
			outcome.Result = &res
		case FixCommand:
			if suggestion.FixDetails.Command == "" {
				outcome.Message = "manual_intervention_required"
				break
			}
			fix := Task{
				TaskID:      ft.Task.TaskID,
				Description: fmt.Sprintf("Fix for task %d: %s", ft.Task.TaskID, suggestion.Analysis),
				Type:        TaskCommand,
				Details:     CommandDetails{Command: suggestion.FixDetails.Command},
			}
			res := o.executor.ExecuteTask(ctx, fix)
			outcome.Applied = true
			outcome.Result = &res
		default:
			outcome.Message = "manual_intervention_required"
		}

		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ProjectSummary describes the current workspace state.
type ProjectSummary struct {
	Workspace  string   `json:"workspace"`
	Files      []string `json:"files"`
	TotalFiles int      `json:"total_files"`
	Runs       int      `json:"runs"`
}

func (o *Orchestrator) ProjectSummary() (*ProjectSummary, error) {
	files, err := o.executor.WorkspaceFiles()
	if err != nil {
		return nil, err
	}
	return &ProjectSummary{
		Workspace:  o.executor.Workspace(),
		Files:      files,
		TotalFiles: len(files),
		Runs:       o.history.Len(),
	}, nil
}
