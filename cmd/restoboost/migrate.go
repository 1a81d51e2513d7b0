package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"restoboost/internal/config"
	"restoboost/internal/store/sqlstore"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema in the sqlite or postgres store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverREST {
				return errors.New("the rest store is migrated by its provider")
			}

			s, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN, &logger)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Migrate(context.Background())
		},
	}
}
