package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/backup"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write a JSONL backup of every table",
	GroupID: "data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, logCloser, err := setup()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		output, _ := cmd.Flags().GetString("output")
		var w io.Writer = cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		counts, err := backup.ExportJSONL(cmd.Context(), st, w)
		if err != nil {
			return err
		}
		if w != cmd.OutOrStdout() {
			total := 0
			for _, n := range counts {
				total += n
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", total, output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}
