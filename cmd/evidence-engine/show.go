// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <report.yaml>",
	Short: "Render a report saved with rank --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := report.ReadReport(args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return report.FormatJSON(f, os.Stdout)
		}
		report.FormatTable(f.Outcome, os.Stdout)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "output the saved report as JSON")
	rootCmd.AddCommand(showCmd)
}
