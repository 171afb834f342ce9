// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders rank outcomes and scored study lists for the CLI:
// a fixed-width table, JSON, a CSL-YAML bibliography, and a saved YAML
// report that can be read back without querying upstream services.
package report

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// FormatTable writes an outcome as human-readable text to w.
func FormatTable(o types.Outcome, w io.Writer) {
	switch {
	case o.Status == types.StatusInsufficientEvidence && o.Insufficient != nil:
		formatInsufficient(*o.Insufficient, w)
	case o.Result != nil:
		formatRanked(*o.Result, o.Cached, w)
	default:
		fmt.Fprintln(w, "No result.")
	}
}

func formatInsufficient(ie types.InsufficientEvidence, w io.Writer) {
	fmt.Fprintf(w, "Insufficient evidence for %s.\n", subject(ie.Term, ie.BenefitTerm))
	fmt.Fprintf(w, "Strategies run: %s\n", strings.Join(ie.StrategiesRun, ", "))
	for _, e := range ie.StrategyErrors {
		fmt.Fprintf(w, "  failed: %s\n", e)
	}
}

func formatRanked(r types.RankedResult, cached bool, w io.Writer) {
	m := r.Metadata
	fmt.Fprintf(w, "Evidence for %s", subject(r.Term, r.BenefitTerm))
	if cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Consensus: %s   Confidence: %d/100\n", m.Consensus, m.ConfidenceScore)
	fmt.Fprintf(w, "Studies: %d total, %d considered (%d positive, %d negative, %d neutral)\n\n",
		m.TotalStudies, m.ConsideredStudies, m.PositiveCount, m.NegativeCount, m.NeutralCount)

	fmt.Fprintf(w, "Supporting (avg quality %.1f)\n", m.AvgSupportingQuality)
	evaluatedTable(r.Supporting, w)
	fmt.Fprintf(w, "\nOpposing (avg quality %.1f)\n", m.AvgOpposingQuality)
	evaluatedTable(r.Opposing, w)

	if len(r.StrategyErrors) > 0 {
		fmt.Fprintln(w)
		for _, e := range r.StrategyErrors {
			fmt.Fprintf(w, "strategy failed: %s\n", e)
		}
	}
}

func evaluatedTable(studies []types.EvaluatedStudy, w io.Writer) {
	if len(studies) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	fmt.Fprintf(w, "%-4s  %-10s  %-56s  %-4s  %-5s  %-8s  %s\n",
		"Rank", "PMID", "Title", "Year", "Score", "Label", "Conf")
	fmt.Fprintln(w, strings.Repeat("-", 106))
	for i, s := range studies {
		label := string(s.Sentiment.Label)
		if s.Backfilled {
			label += "*"
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-56s  %-4s  %-5d  %-8s  %.2f\n",
			i+1, s.ID, truncate(s.Title, 56), year(s.PublicationYear), s.QualityScore, label, s.Sentiment.Confidence)
	}
}

// FormatStudies writes scored studies as a table to w.
func FormatStudies(studies []types.ScoredStudy, dupsRemoved int, w io.Writer) {
	if len(studies) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-50s  %-20s  %-4s  %-5s  %s\n",
		"Rank", "PMID", "Title", "Authors", "Year", "Score", "Tier")
	fmt.Fprintln(w, strings.Repeat("-", 118))

	for i, s := range studies {
		fmt.Fprintf(w, "%-4d  %-10s  %-50s  %-20s  %-4s  %-5d  %s\n",
			i+1, s.ID, truncate(s.Title, 50), formatAuthors(s.Authors), year(s.PublicationYear), s.QualityScore, s.QualityTier)
	}

	fmt.Fprintf(w, "\n%d results", len(studies))
	if dupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", dupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func subject(term, benefit string) string {
	if benefit == "" {
		return term
	}
	return term + " / " + benefit
}

func year(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprint(y)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
