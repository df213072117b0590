package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inspection-platform/internal/datasource"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := datasource.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		file    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a fixture file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			snap, err := datasource.DecodeFixture(f)
			if err != nil {
				return err
			}

			db, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if _, err := datasource.Migrate(cmd.Context(), db); err != nil {
					return err
				}
			}
			n, err := datasource.NewPostgres(db).Seed(cmd.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d call(s) from %s\n", n, file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "fixtures/calls.yaml", "fixture file to load")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations first")
	return cmd
}
