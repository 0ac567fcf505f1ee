package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/04arvind/newla/pkg/agent"
)

type eventMsg agent.Event

type line struct {
	icon string
	text string
}

type model struct {
	prompt  string
	spinner spinner.Model
	stage   string
	lines   []line
	done    bool
	final   string
	width   int
}

func newModel(prompt string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleStage
	return model{
		prompt:  prompt,
		spinner: sp,
		stage:   agent.StatusStarted,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case eventMsg:
		return m.applyEvent(agent.Event(msg))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) applyEvent(event agent.Event) (tea.Model, tea.Cmd) {
	switch event.Type {
	case "status":
		m.stage = event.Status
		m.lines = append(m.lines, line{
			icon: styleStage.Render("›"),
			text: stageLabel(event.Status),
		})
	case "task":
		icon := styleOK.Render("✓")
		if strings.Contains(event.Message, "failed") {
			icon = styleErr.Render("✗")
		}
		m.lines = append(m.lines, line{icon: icon, text: event.Message})
	case "done":
		m.done = true
		m.final = event.Status
		return m, tea.Quit
	}
	return m, nil
}

func stageLabel(status string) string {
	switch status {
	case agent.StatusPlanning:
		return "Planning build steps"
	case agent.StatusExecution:
		return "Executing plan"
	case agent.StatusErrorFixing:
		return "Analyzing failures"
	case agent.StatusValidation:
		return "Validating results"
	default:
		return status
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(styleHeader.Render("Newla Build Monitor"))
	b.WriteString("\n")
	b.WriteString(styleDim.Render(truncate(m.prompt, 76)))
	b.WriteString("\n\n")

	var body strings.Builder
	for _, l := range m.lines {
		body.WriteString(fmt.Sprintf("%s %s\n", l.icon, l.text))
	}
	if m.done {
		body.WriteString(fmt.Sprintf("%s %s\n", statusIcon(m.final), finalLabel(m.final)))
	} else {
		body.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), stageLabel(m.stage)))
	}
	b.WriteString(stylePanel.Render(strings.TrimRight(body.String(), "\n")))
	b.WriteString("\n")
	b.WriteString(styleStatusBar.Render("q to quit"))
	return b.String()
}

func finalLabel(status string) string {
	switch status {
	case agent.StatusSuccess:
		return "Build completed"
	case agent.StatusCompletedWithErrors:
		return "Build completed with errors"
	case agent.StatusError:
		return "Build failed"
	default:
		return status
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
