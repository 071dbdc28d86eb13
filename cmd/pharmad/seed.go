package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:     "seed [file.toml]",
	Short:   "Load roles, branches, lookups and providers",
	Long:    "Load reference data from a TOML file, or the built-in defaults when no file is given. Rows that already exist are left alone.",
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		var f *seed.File
		if len(args) == 1 {
			f, err = seed.LoadFile(args[0])
		} else {
			f, err = seed.Default()
		}
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := seed.Apply(cmd.Context(), st, f)
		if err != nil {
			return err
		}
		logger.Info("seed applied", "roles", res.Roles, "branches", res.Branches, "lookups", res.Lookups, "providers", res.Providers)
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d rows\n", res.Total())
		return nil
	},
}
