package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/providers"
)

// Validator checks the outcome of a run: file structure, syntax, tests, and
// an optional LLM review. It also drives error analysis for the fix pass.
type Validator struct {
	executor *Executor
	provider providers.Provider
}

func NewValidator(executor *Executor, provider providers.Provider) *Validator {
	return &Validator{executor: executor, provider: provider}
}

// ValidateFileStructure partitions expectedFiles into existing and missing.
// An empty expectation is trivially valid.
func (v *Validator) ValidateFileStructure(expectedFiles []string) ValidationReport {
	report := ValidationReport{Valid: true}
	for _, path := range expectedFiles {
		if v.executor.FileExists(path) {
			report.ExistingFiles = append(report.ExistingFiles, path)
		} else {
			report.MissingFiles = append(report.MissingFiles, path)
			report.Valid = false
		}
	}
	return report
}

// ValidateSyntax compile-checks a file with the matching interpreter. File
// types without a checker pass.
func (v *Validator) ValidateSyntax(ctx context.Context, path string) SyntaxReport {
	var command string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		command = fmt.Sprintf("python -m py_compile %s", path)
	case ".js":
		command = fmt.Sprintf("node --check %s", path)
	default:
		return SyntaxReport{Valid: true}
	}

	result := v.executor.RunCommand(ctx, command)
	if result.OK() {
		return SyntaxReport{Valid: true}
	}

	report := SyntaxReport{Valid: false}
	if result.Stderr != "" {
		report.Errors = append(report.Errors, result.Stderr)
	} else {
		report.Errors = append(report.Errors, result.Error)
	}
	return report
}

// RunTests executes a test command in the workspace and reports the outcome.
func (v *Validator) RunTests(ctx context.Context, command string) TestReport {
	result := v.executor.RunCommand(ctx, command)
	return TestReport{
		Passed: result.OK(),
		Output: result.Stdout,
		Errors: result.Stderr,
	}
}

// AnalyzeError asks the backend to diagnose a failed task and propose a fix.
// Backend or parse failures degrade to a manual-intervention suggestion.
func (v *Validator) AnalyzeError(ctx context.Context, failed FailedTask) FixSuggestion {
	taskJSON, err := json.MarshalIndent(failed.Task, "", "  ")
	if err != nil {
		taskJSON = []byte(fmt.Sprintf("%+v", failed.Task))
	}

	response, err := v.provider.Call(ctx, errorFixSystemPrompt, errorFixPrompt(failed.LastError, string(taskJSON)))
	if err != nil {
		logger.WarnCF("validator", "Error analysis call failed", map[string]interface{}{
			"task_id": failed.Task.TaskID,
			"error":   err.Error(),
		})
		return manualFix(err.Error())
	}

	var suggestion FixSuggestion
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &suggestion); err != nil {
		return manualFix(err.Error())
	}
	if suggestion.FixType == "" {
		suggestion.FixType = FixManual
	}
	return suggestion
}

func manualFix(detail string) FixSuggestion {
	return FixSuggestion{
		Analysis: "Failed to analyze error",
		FixType:  FixManual,
		Err:      detail,
	}
}

// ValidateWithLLM sends workspace contents for review. The review fails
// open: an unavailable or incoherent reviewer never blocks a run.
func (v *Validator) ValidateWithLLM(ctx context.Context) LLMReview {
	contents, err := v.executor.ReadAllFiles()
	if err != nil {
		return LLMReview{Valid: true, Err: err.Error()}
	}

	filesJSON, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return LLMReview{Valid: true, Err: err.Error()}
	}

	response, err := v.provider.Call(ctx, reviewSystemPrompt, reviewPrompt(string(filesJSON)))
	if err != nil {
		logger.WarnCF("validator", "LLM review unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return LLMReview{Valid: true, Err: err.Error()}
	}

	var review LLMReview
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &review); err != nil {
		return LLMReview{Valid: true, Err: err.Error()}
	}
	return review
}

// ComprehensiveValidation checks the resulting file structure and optionally
// runs tests. Overall validity requires both to pass.
func (v *Validator) ComprehensiveValidation(ctx context.Context, expectedFiles []string, testCommand string) ComprehensiveReport {
	report := ComprehensiveReport{
		FileStructure: v.ValidateFileStructure(expectedFiles),
	}
	report.OverallValid = report.FileStructure.Valid

	if testCommand != "" {
		tests := v.RunTests(ctx, testCommand)
		report.Tests = &tests
		if !tests.Passed {
			report.OverallValid = false
		}
	}
	return report
}
