package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"restoboost/internal/availability"
)

func newSlotsCmd(opts *rootOptions) *cobra.Command {
	var (
		restaurantID int64
		date         string
		timeout      time.Duration
	)

	c := &cobra.Command{
		Use:   "slots",
		Short: "Print the available slots of a restaurant as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, &logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if date == "" {
				date = availability.Today()
			}
			ctx, cancel := contextWithTimeout(cmd, timeout)
			defer cancel()

			res := a.engine.Compute(ctx, restaurantID, date)
			if res.Err != nil {
				return fmt.Errorf("restaurant %d on %s: %w", restaurantID, date, res.Err)
			}
			for _, d := range res.Degraded {
				logger.Warn().Err(d).Msg("partial data")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.SlotsOrEmpty())
		},
	}

	c.Flags().Int64Var(&restaurantID, "restaurant-id", 0, "restaurant id")
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today in Almaty)")
	c.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	_ = c.MarkFlagRequired("restaurant-id")
	return c
}
