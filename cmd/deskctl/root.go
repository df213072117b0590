package main

import "github.com/spf13/cobra"

type rootFlags struct {
	fixture string
	json    bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:           "deskctl",
		Short:         "Inspection desk operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&f.fixture, "fixture", "", "read from this fixture file instead of the configured data source")
	cmd.PersistentFlags().BoolVar(&f.json, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newKpisCmd(&f),
		newCallsCmd(&f),
		newHistoryCmd(&f),
		newReportCmd(&f),
		newExportCmd(&f),
		newTokenCmd(&f),
	)
	return cmd
}
