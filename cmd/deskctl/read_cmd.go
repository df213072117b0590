package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"inspection-platform/internal/calls"
	"inspection-platform/internal/datasource"
	"inspection-platform/internal/history"
	"inspection-platform/internal/registry"
)

func newKpisCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Print dashboard counts for the working set",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), f)
			if err != nil {
				return err
			}
			k := registry.KpisOf(snap.Registry())
			if f.json {
				return writeJSON(cmd.OutOrStdout(), k)
			}
			tw := newTable(cmd.OutOrStdout(), "Bucket", "Metric", "Count")
			tw.AppendRows([]table.Row{
				{calls.BucketPendingVerification, "total", k.PendingVerification.Total},
				{"", "fresh", k.PendingVerification.Fresh},
				{"", "resubmission", k.PendingVerification.Resubmission},
				{"", "returned", k.PendingVerification.Returned},
			})
			tw.AppendSeparator()
			tw.AppendRows([]table.Row{
				{calls.BucketVerifiedOpen, "total", k.VerifiedOpen.Total},
				{"", "raw material", k.VerifiedOpen.RawMaterial},
				{"", "process", k.VerifiedOpen.Process},
				{"", "final", k.VerifiedOpen.Final},
			})
			tw.AppendSeparator()
			tw.AppendRows([]table.Row{
				{calls.BucketDisposed, "total", k.Disposed.Total},
				{"", "completed", k.Disposed.Completed},
				{"", "withdrawn", k.Disposed.Withdrawn},
				{"", "cancelled", k.Disposed.Cancelled},
				{"", "rejected", k.Disposed.Rejected},
			})
			tw.Render()
			return nil
		},
	}
}

func newCallsCmd(f *rootFlags) *cobra.Command {
	var (
		bucket string
		rio    string
	)
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := calls.Bucket(bucket)
			if b != "" && !b.Valid() {
				return fmt.Errorf("unknown bucket %q", bucket)
			}
			snap, err := loadSnapshot(cmd.Context(), f)
			if err != nil {
				return err
			}
			r := registry.New()
			if err := r.Replace(snap.Registry()); err != nil {
				return err
			}

			var list []calls.Call
			if rio != "" {
				list = r.QueryByOffice(rio)
			} else {
				s := r.Snapshot()
				for _, bk := range calls.Buckets {
					list = append(list, s.Bucket(bk)...)
				}
			}
			out := make([]calls.Call, 0, len(list))
			for _, c := range list {
				if b == "" || c.Bucket() == b {
					out = append(out, c)
				}
			}

			if f.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := newTable(cmd.OutOrStdout(), "Call", "Product", "Stage", "Status", "RIO", "Vendor", "Sub#")
			for _, c := range out {
				tw.AppendRow(table.Row{c.CallNumber, c.Product, c.Stage, c.Status, c.RIO, c.Details.VendorName, c.SubmissionCount})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "", "total", len(out)})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "pending_verification, verified_open or disposed")
	cmd.Flags().StringVar(&rio, "rio", "", "regional office code")
	return cmd
}

func newHistoryCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <call-number>",
		Short: "Print the audit trail of one call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), f)
			if err != nil {
				return err
			}
			entries, err := historyOf(cmd.Context(), snap, args[0])
			if err != nil {
				return err
			}
			if f.json {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			tw := newTable(cmd.OutOrStdout(), "When", "Action", "Actor", "Remarks")
			for _, e := range entries {
				tw.AppendRow(table.Row{e.Timestamp.Format("2006-01-02 15:04"), e.Action, e.Actor, e.Remarks})
			}
			tw.Render()
			return nil
		},
	}
}

func historyOf(ctx context.Context, snap datasource.Snapshot, callNumber string) ([]calls.HistoryEntry, error) {
	log := history.NewLog(history.NewMemoryRepo())
	if err := log.Load(ctx, snap.History); err != nil {
		return nil, err
	}
	return log.History(ctx, callNumber)
}

func newExportCmd(f *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the working set as a fixture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadSnapshot(cmd.Context(), f)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return datasource.EncodeFixture(cmd.OutOrStdout(), snap)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := datasource.EncodeFixture(file, snap); err != nil {
				_ = file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output path, - for stdout")
	return cmd
}
