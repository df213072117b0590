package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"inspection-platform/internal/registry"
	"inspection-platform/internal/reporting"
)

func newReportCmd(f *rootFlags) *cobra.Command {
	var office string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Per-office workload and rectification hot spots",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), f)
			if err != nil {
				return err
			}
			reg := registry.New()
			if err := reg.Replace(snap.Registry()); err != nil {
				return err
			}
			svc := reporting.NewService(reporting.NewLiveRepo(reg))

			rows, err := svc.OfficeWorkload(cmd.Context(), reporting.WorkloadRequest{Office: office})
			if err != nil {
				return err
			}
			rect, err := svc.Rectification(cmd.Context(), office)
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"offices": rows, "rectification": rect})
			}

			tw := newTable(cmd.OutOrStdout(), "RIO", "Total", "Pending", "Fresh", "Resub", "Returned", "Verified", "Disposed", "Avg sub")
			for _, w := range rows {
				tw.AppendRow(table.Row{w.Office, w.Total, w.PendingVerification, w.FreshSubmissions, w.Resubmissions,
					w.Returned, w.VerifiedOpen, w.Disposed, fmt.Sprintf("%.2f", w.AverageSubmissions)})
			}
			tw.Render()

			ft := newTable(cmd.OutOrStdout(), "Flagged section", "Returned calls")
			for _, fc := range rect.Fields {
				ft.AppendRow(table.Row{fc.Field, fc.Count})
			}
			ft.AppendFooter(table.Row{"returned", rect.ReturnedCalls})
			ft.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&office, "rio", "", "restrict to one regional office")
	return cmd
}
