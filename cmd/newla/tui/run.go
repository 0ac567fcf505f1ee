// Package tui renders live build-run progress with bubbletea.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/04arvind/newla/pkg/agent"
)

// Monitor streams orchestrator events into a live terminal view. It
// implements agent.EventSink, so it can be attached directly to a run.
type Monitor struct {
	program *tea.Program
}

func NewMonitor(prompt string) *Monitor {
	p := tea.NewProgram(newModel(prompt))
	return &Monitor{program: p}
}

// Emit forwards a run event to the view. Safe to call from any goroutine.
func (m *Monitor) Emit(event agent.Event) {
	m.program.Send(eventMsg(event))
}

// Run blocks until the run finishes or the user quits.
func (m *Monitor) Run() error {
	_, err := m.program.Run()
	return err
}
