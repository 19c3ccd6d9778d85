package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sa",
		Short:         "Stock Admin CLI (sa): administer inventory in a remote document store",
		Long:          "sa (Stock Admin CLI) manages products and warehouses in a remote document store: CRUD with filtering and sorting, dual-role login with a persisted session, spreadsheet import, and warehouse aggregate recalculation.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newListCmd(app),
		newGetCmd(app),
		newCreateCmd(app),
		newUpdateCmd(app),
		newDeleteCmd(app),
		newImportCmd(app),
		newRecalcCmd(app),
	)

	return rootCmd
}
