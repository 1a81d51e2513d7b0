package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"restoboost/internal/report"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		restaurantID int64
		month        string
		out          string
		timeout      time.Duration
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Export a month of bookings to an xlsx file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			if month == "" {
				month = time.Now().AddDate(0, -1, 0).Format("2006-01")
			}
			first, err := report.ParseMonth(month)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(cfg.Report.Dir, report.Filename(restaurantID, first))
			}

			a, err := newApp(cfg, &logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create report directory: %w", err)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := contextWithTimeout(cmd, timeout)
			defer cancel()

			summary, err := a.reports.ExportBookings(ctx, restaurantID, month, f)
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			cmd.Printf("wrote %s (%d bookings, %d guests)\n", out, summary.Total, summary.Guests)
			return nil
		},
	}

	c.Flags().Int64Var(&restaurantID, "restaurant-id", 0, "restaurant id")
	c.Flags().StringVar(&month, "month", "", "month YYYY-MM (default previous month)")
	c.Flags().StringVarP(&out, "output", "o", "", "output file (default <report.dir>/restaurant_<id>_<month>.xlsx)")
	c.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	_ = c.MarkFlagRequired("restaurant-id")
	return c
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
