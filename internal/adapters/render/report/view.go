// Package report renders bulk import outcomes for the terminal.
package report

import (
	"fmt"
	"time"

	"github.com/bnema/stock-admin-cli/internal/adapters/history"
	"github.com/bnema/stock-admin-cli/internal/application"
	"github.com/charmbracelet/lipgloss"
)

// Render formats one import summary: counts first, then per-row messages.
func Render(source string, summary application.ImportSummary) string {
	s := newStyles()

	lines := []string{
		s.title.Render(fmt.Sprintf("Import %s", source)),
		s.success.Render(fmt.Sprintf("imported: %d", summary.Succeeded)),
	}
	if summary.Failed > 0 {
		lines = append(lines, s.failure.Render(fmt.Sprintf("failed: %d", summary.Failed)))
		for _, rowErr := range summary.Errors {
			lines = append(lines, s.detail.Render(fmt.Sprintf("  row %d: %s", rowErr.Row, rowErr.Message)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderHistory formats past import runs, oldest first.
func RenderHistory(entries []history.Entry) string {
	s := newStyles()

	if len(entries) == 0 {
		return s.empty.Render("No imports recorded.")
	}

	lines := []string{s.title.Render(fmt.Sprintf("Import history (%d runs)", len(entries)))}
	for _, entry := range entries {
		line := fmt.Sprintf("%s  %s  ok=%d failed=%d",
			entry.At.Format(time.RFC3339), entry.Source, entry.Succeeded, entry.Failed)
		lines = append(lines, s.section.Render(s.detail.Render(line)))
		for _, msg := range entry.Messages {
			lines = append(lines, s.detail.Render("  "+msg))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
