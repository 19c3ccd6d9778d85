package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRecalcCmd(app *app) *cobra.Command {
	var warehouseIDs []string

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate warehouse aggregates",
		Long:  "Recomputes the derived quantity total and product name listing of every warehouse (or just the given ones) from the products that reference it. Warehouses are processed one at a time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Recalculating aggregates...",
				func(ctx context.Context) error {
					if len(warehouseIDs) > 0 {
						app.aggregates.RecomputeMany(ctx, warehouseIDs)
					} else {
						app.aggregates.RecomputeAll(ctx)
					}
					return nil
				})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Done.")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&warehouseIDs, "warehouse", nil, "Warehouse ID to recompute (repeatable; default: all)")

	return cmd
}
