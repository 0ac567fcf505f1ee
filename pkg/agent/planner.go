package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/providers"
)

// Planner turns a user request into a structured Plan via the completion
// backend.
type Planner struct {
	provider providers.Provider
}

func NewPlanner(provider providers.Provider) *Planner {
	return &Planner{provider: provider}
}

// CreatePlan asks the backend for a plan and parses it. A backend failure is
// returned as an error; an unparsable response degrades to a fallback plan.
func (p *Planner) CreatePlan(ctx context.Context, request string) (*Plan, error) {
	response, err := p.provider.Call(ctx, systemPrompt, planningPrompt(request))
	if err != nil {
		return nil, err
	}

	plan := ParsePlan(response)
	plan.RawResponse = response

	logger.InfoCF("planner", "Plan created", map[string]interface{}{
		"tasks": len(plan.Tasks),
	})
	return plan, nil
}

// RefinePlan re-invokes the backend with the prior plan and feedback embedded.
func (p *Planner) RefinePlan(ctx context.Context, plan *Plan, feedback string) (*Plan, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, err
	}

	response, err := p.provider.Call(ctx, systemPrompt, refinePrompt(string(planJSON), feedback))
	if err != nil {
		return nil, err
	}

	refined := ParsePlan(response)
	refined.RawResponse = response
	return refined, nil
}

// ParsePlan parses a backend response into a Plan. It never fails: malformed
// output degrades to a single manual-review task carrying the raw response,
// so the pipeline always has something actionable.
func ParsePlan(response string) *Plan {
	cleaned := stripCodeFence(response)

	var raw struct {
		Analysis        *string `json:"analysis"`
		Tasks           *[]Task `json:"tasks"`
		ExpectedOutcome *string `json:"expected_outcome"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		logger.WarnCF("planner", "Falling back to manual plan", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackPlan(response)
	}
	if raw.Analysis == nil || raw.Tasks == nil || raw.ExpectedOutcome == nil {
		logger.WarnC("planner", "Plan missing required keys; falling back to manual plan")
		return fallbackPlan(response)
	}

	return &Plan{
		Analysis:        *raw.Analysis,
		Tasks:           *raw.Tasks,
		ExpectedOutcome: *raw.ExpectedOutcome,
	}
}

func fallbackPlan(response string) *Plan {
	return &Plan{
		Analysis: "Failed to parse structured plan",
		Tasks: []Task{
			{
				TaskID:      1,
				Description: "Manual execution required",
				Type:        TaskManual,
				Details:     ManualDetails{RawResponse: response},
			},
		},
		ExpectedOutcome: "Manual review needed",
	}
}

// NextTask returns the first task in plan order whose id is not yet
// completed, or nil when all are done.
func NextTask(plan *Plan, completedIDs []int) *Task {
	done := make(map[int]bool, len(completedIDs))
	for _, id := range completedIDs {
		done[id] = true
	}
	for i := range plan.Tasks {
		if !done[plan.Tasks[i].TaskID] {
			return &plan.Tasks[i]
		}
	}
	return nil
}

// stripCodeFence removes a leading/trailing fenced-code wrapper if present.
func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
