package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/stock-admin-cli/internal/adapters/history"
	"github.com/bnema/stock-admin-cli/internal/adapters/render/report"
	"github.com/bnema/stock-admin-cli/internal/application"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import products from a spreadsheet",
		Long:  "Imports product rows from the first sheet of an .xlsx workbook. Accepted columns: name, type, price, quantity, warehouse (Russian header aliases are recognized). Warehouses are resolved by exact name and created on demand; every warehouse aggregate is recalculated once after the batch.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, app, args[0])
		},
	}

	cmd.AddCommand(newImportHistoryCmd(app))

	return cmd
}

func runImport(cmd *cobra.Command, app *app, path string) error {
	if err := restoreSession(cmd, app); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = file.Close() }()

	rows, err := application.ParseXLSX(file)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no importable rows in %s", path)
	}

	var summary application.ImportSummary
	err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(),
		fmt.Sprintf("Importing %d rows...", len(rows)),
		func(ctx context.Context) error {
			summary = app.importer.Run(ctx, rows)
			return nil
		})
	if err != nil {
		return err
	}

	source := filepath.Base(path)
	if err := app.history.Append(cmd.Context(), historyEntry(app, source, summary)); err != nil {
		app.logger.Warn("record import history", zap.Error(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(source, summary))

	if summary.Succeeded == 0 && summary.Failed > 0 {
		return fmt.Errorf("all %d rows failed to import", summary.Failed)
	}
	return nil
}

func newImportHistoryCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := app.history.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderHistory(entries))
			return nil
		},
	}
}

func historyEntry(app *app, source string, summary application.ImportSummary) history.Entry {
	messages := make([]string, 0, len(summary.Errors))
	for _, rowErr := range summary.Errors {
		messages = append(messages, fmt.Sprintf("row %d: %s", rowErr.Row, rowErr.Message))
	}
	return history.Entry{
		At:        app.clock.Now(),
		Source:    source,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Messages:  messages,
	}
}
