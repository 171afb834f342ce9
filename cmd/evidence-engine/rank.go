// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/engine"
	"github.com/pdiddy/evidence-engine/internal/report"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank <term>",
	Short: "Rank supporting and opposing studies for a supplement",
	Long: `Rank searches PubMed for the supplement, scores every study, classifies
whether each one supports or contradicts it, and prints the top supporting and
opposing studies with a consensus label and a 0-100 confidence score.

A term with no published studies prints an insufficient-evidence report and
exits successfully.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	addRequestFlags(rankCmd)
	rankCmd.Flags().Bool("no-cache", false, "bypass the result cache")
	rankCmd.Flags().Bool("json", false, "output the outcome as JSON")
	rankCmd.Flags().Bool("csl", false, "output the ranked studies as a CSL-YAML bibliography")
	rankCmd.Flags().String("out", "", "also save the request and outcome to this YAML file")

	rootCmd.AddCommand(rankCmd)
}

// addRequestFlags registers the flags shared by every command that builds a
// RankRequest.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("benefit", "", "benefit or condition to focus on (e.g. sleep)")
	cmd.Flags().Int("max-results", 0, "cap on merged studies (default from config)")
	cmd.Flags().Int("year-from", 0, "earliest publication year")
	cmd.Flags().Int("year-to", 0, "latest publication year")
	cmd.Flags().Bool("human-only", false, "restrict to human studies")
	cmd.Flags().StringSlice("study-types", nil, "restrict to study types (comma-separated: "+studyTypeList()+")")
	cmd.Flags().Duration("timeout", 0, "overall deadline (default from config)")
}

func requestFromFlags(cmd *cobra.Command, args []string) types.RankRequest {
	benefit, _ := cmd.Flags().GetString("benefit")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	yearFrom, _ := cmd.Flags().GetInt("year-from")
	yearTo, _ := cmd.Flags().GetInt("year-to")
	humanOnly, _ := cmd.Flags().GetBool("human-only")
	studyTypes, _ := cmd.Flags().GetStringSlice("study-types")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	req := types.RankRequest{
		Term:        strings.Join(args, " "),
		BenefitTerm: benefit,
		MaxResults:  maxResults,
		Timeout:     timeout,
		Filters: types.Filters{
			YearFrom:  yearFrom,
			YearTo:    yearTo,
			HumanOnly: humanOnly,
		},
	}
	for _, st := range studyTypes {
		req.Filters.StudyTypes = append(req.Filters.StudyTypes, types.StudyType(strings.TrimSpace(st)))
	}
	return req
}

func studyTypeList() string {
	all := types.AllStudyTypes()
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

func runRank(cmd *cobra.Command, args []string) error {
	req := requestFromFlags(cmd, args)
	req.SkipCache, _ = cmd.Flags().GetBool("no-cache")
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	outPath, _ := cmd.Flags().GetString("out")
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
	requestID := uuid.NewString()
	ctx = engine.WithRequestID(ctx, requestID)

	out, err := eng.Rank(ctx, req)
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := report.WriteReport(outPath, req, out, requestID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved report to %s\n", outPath)
	}

	switch {
	case asJSON:
		return report.FormatJSON(out, os.Stdout)
	case asCSL:
		return report.FormatCSL(out, os.Stdout)
	default:
		report.FormatTable(out, os.Stdout)
		return nil
	}
}
