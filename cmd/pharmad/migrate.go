package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Apply database schema migrations",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		down, _ := cmd.Flags().GetBool("down")
		if err := postgres.Migrate(cfg.DatabaseURL, down); err != nil {
			return err
		}
		if down {
			logger.Info("migrations rolled back")
		} else {
			logger.Info("migrations applied")
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "roll back every migration")
}
