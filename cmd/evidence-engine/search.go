// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/report"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "List scored studies without classifying them",
	Long: `Search runs every enabled PubMed strategy, merges and deduplicates the
results, and prints each study with its quality score, highest first. No
sentiment classification is performed and nothing is cached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addRequestFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("csl", false, "output results as a CSL-YAML bibliography")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := requestFromFlags(cmd, args)
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	if asJSON && asCSL {
		return fmt.Errorf("--json and --csl are mutually exclusive")
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if req.Timeout <= 0 {
		req.Timeout = cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	studies, out, err := eng.Search(ctx, req)
	if err != nil {
		return err
	}
	for _, e := range out.StrategyErrors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}

	switch {
	case asJSON:
		return report.FormatJSON(studies, os.Stdout)
	case asCSL:
		return report.FormatStudiesCSL(studies, os.Stdout)
	default:
		report.FormatStudies(studies, out.DupsRemoved, os.Stdout)
		return nil
	}
}
