package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/embjs/embjs/bridge"
	"github.com/embjs/embjs/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// historyEntry is one evaluated line with everything it produced.
type historyEntry struct {
	input  string
	result string
	output string
	errLog string
	failed bool
}

type replModel struct {
	ctx     *runtime.Context
	input   textinput.Model
	history []historyEntry
	err     error
}

func newReplModel(cfg cliConfig, logger *zap.Logger) (*replModel, error) {
	ctx, err := newContext(cfg, logger, nil)
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.Prompt = "js> "
	ti.PromptStyle = promptStyle
	ti.Width = 72
	ti.Focus()

	return &replModel{ctx: ctx, input: ti}, nil
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.ctx.Close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.history = append(m.history, m.evalLine(line))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evalLine runs one prompt line with REPL laxity, draining the bridge
// buffers into the transcript entry.
func (m *replModel) evalLine(line string) historyEntry {
	entry := historyEntry{input: line}

	v := m.ctx.Eval(line, "<repl>", runtime.EvalREPL|runtime.EvalRetVal)
	if v.IsException() {
		entry.failed = true
		if serr := m.ctx.Exception(); serr != nil {
			entry.result = serr.Error()
		} else {
			entry.result = "unknown exception"
		}
	} else if !v.IsUndefined() {
		entry.result = m.ctx.ToString(v)
	}

	var stdout, stderr strings.Builder
	if err := bridge.Flush(m.ctx, &stdout, &stderr); err != nil {
		entry.failed = true
		entry.errLog = err.Error()
		return entry
	}
	entry.output = strings.TrimRight(stdout.String(), "\n")
	entry.errLog = strings.TrimRight(stderr.String(), "\n")
	return entry
}

func (m *replModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("embjs"))
	b.WriteString(" interactive prompt\n\n")

	// Show the last screenful of history.
	start := 0
	if len(m.history) > 20 {
		start = len(m.history) - 20
	}
	for _, e := range m.history[start:] {
		b.WriteString(promptStyle.Render("js> "))
		b.WriteString(e.input)
		b.WriteString("\n")
		if e.output != "" {
			b.WriteString(outputStyle.Render(e.output))
			b.WriteString("\n")
		}
		if e.errLog != "" {
			b.WriteString(errorStyle.Render(e.errLog))
			b.WriteString("\n")
		}
		if e.result != "" {
			if e.failed {
				b.WriteString(errorStyle.Render(e.result))
			} else {
				b.WriteString(resultStyle.Render(e.result))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter evaluate • ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func runInteractive(cfg cliConfig, logger *zap.Logger) error {
	if !cfg.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	m, err := newReplModel(cfg, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}
