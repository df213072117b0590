package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"inspection-platform/internal/auth"
	"inspection-platform/internal/config"
)

func newTokenCmd(f *rootFlags) *cobra.Command {
	var id auth.Identity
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a token pair for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return errors.New("token issuance is disabled in production")
			}
			m, err := auth.NewManager(cfg.Auth)
			if err != nil {
				return err
			}
			pair, err := m.IssuePair(time.Now(), id)
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), pair)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pair.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&id.Office, "office", "", "regional office code (staff)")
	cmd.Flags().StringVar(&id.VendorID, "vendor", "", "vendor id (vendor role)")
	cmd.Flags().StringVar(&id.Role, "role", "verifier", "role")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
