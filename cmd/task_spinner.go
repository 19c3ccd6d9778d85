package cmd

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type taskResult struct {
	err error
}

// taskSpinnerModel animates a spinner next to a label until the background
// task reports back. It never reads input; the only way out is the task
// finishing or the surrounding context dying.
type taskSpinnerModel struct {
	frame spinner.Model
	label string
	run   tea.Cmd

	result *taskResult
}

func (m taskSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.frame.Tick, m.run)
}

func (m taskSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if done, ok := msg.(taskResult); ok {
		m.result = &done
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.frame, cmd = m.frame.Update(msg)
	return m, cmd
}

func (m taskSpinnerModel) View() string {
	if m.result != nil {
		return ""
	}
	return m.frame.View() + " " + m.label
}

// runWithSpinner shows a spinner on output while task runs, then returns the
// task's error.
func runWithSpinner(ctx context.Context, output io.Writer, label string, task func(context.Context) error) error {
	model := taskSpinnerModel{
		frame: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		label: label,
		run: func() tea.Msg {
			return taskResult{err: task(ctx)}
		},
	}

	final, err := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return err
	}

	if m, ok := final.(taskSpinnerModel); ok && m.result != nil {
		return m.result.err
	}
	return nil
}
