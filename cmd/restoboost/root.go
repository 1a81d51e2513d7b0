package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"restoboost/internal/config"
	"restoboost/internal/logging"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "restoboost",
		Short:         "Restaurant discount booking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default $"+config.EnvConfigPath+" or configs/config.yaml)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSlotsCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the config and builds the process logger from it.
func (o *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, logging.New("info", "", os.Stderr), err
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("restoboost %s (%s)\n", Version, CommitSHA)
		},
	}
}
