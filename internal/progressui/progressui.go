// Package progressui renders a job's ProgressEvent stream live in a
// terminal (spec.md SPEC_FULL §4.N): a bubbletea view when stdout is a
// TTY, plain structured log lines otherwise. It only ever consumes the job
// runtime's observe stream — it never drives the runtime itself. Grounded
// on the pack's bubbletea/lipgloss TUI style (see
// kir-gadjello-llm/history_tui.go).
package progressui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/aquilaworks/convocations/internal/model"
)

// IsTTY reports whether stdout is attached to a terminal.
func IsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Run renders events until the channel closes. When stdout is a TTY it
// drives a bubbletea program; otherwise it logs each event as a plain
// line through logger. It returns the last event observed (the job's
// terminal ProgressCompleted/ProgressFailed event in the normal case) so
// the caller can inspect it without re-reading the now-closed channel.
func Run(events <-chan model.ProgressEvent, logger zerolog.Logger) (model.ProgressEvent, error) {
	if !IsTTY() {
		var last model.ProgressEvent
		for ev := range events {
			logLine(logger, ev)
			last = ev
		}
		return last, nil
	}

	p := tea.NewProgram(newModel(events))
	final, err := p.Run()
	if err != nil {
		return model.ProgressEvent{}, err
	}
	if m, ok := final.(uiModel); ok {
		return m.last, nil
	}
	return model.ProgressEvent{}, nil
}

func logLine(logger zerolog.Logger, ev model.ProgressEvent) {
	entry := logger.Info().Str("kind", string(ev.Kind)).Int64("elapsed_ms", ev.ElapsedMs)
	if ev.Stage != "" {
		entry = entry.Str("stage", string(ev.Stage))
	}
	switch ev.Kind {
	case model.ProgressWarning, model.ProgressFailed:
		entry = logger.Warn().Str("kind", string(ev.Kind)).Int64("elapsed_ms", ev.ElapsedMs)
	}
	entry.Msg(ev.Message)
}

var (
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

type eventMsg model.ProgressEvent
type closedMsg struct{}

type uiModel struct {
	events   <-chan model.ProgressEvent
	lines    []string
	quitting bool
	last     model.ProgressEvent
}

func newModel(events <-chan model.ProgressEvent) uiModel {
	return uiModel{events: events}
}

func (m uiModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan model.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.last = model.ProgressEvent(msg)
		m.lines = append(m.lines, renderLine(model.ProgressEvent(msg)))
		if msg.Kind == model.ProgressCompleted || msg.Kind == model.ProgressFailed {
			m.quitting = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m uiModel) View() string {
	out := ""
	for _, line := range m.lines {
		out += line + "\n"
	}
	return out
}

func renderLine(ev model.ProgressEvent) string {
	switch ev.Kind {
	case model.ProgressStageBegin:
		return stageStyle.Render(fmt.Sprintf("▸ %s", ev.Stage))
	case model.ProgressStageEnd:
		return fmt.Sprintf("  %s done (%s)", ev.Stage, ev.Message)
	case model.ProgressWarning:
		return warningStyle.Render("⚠ " + ev.Message)
	case model.ProgressDiff:
		return "--- diff ---\n" + ev.UnifiedDiff
	case model.ProgressCompleted:
		return doneStyle.Render("✓ completed: " + ev.OutputPath)
	case model.ProgressFailed:
		return failStyle.Render("✗ failed: " + ev.Message)
	default:
		return ev.Message
	}
}
