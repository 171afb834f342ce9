// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns a canonical supplement term and optional benefit term
// into PubMed search strings, one per search strategy.
//
// Known supplements are searched through their MeSH descriptor and known
// benefits are expanded to scientific synonyms. Unknown terms degrade to a
// quoted title/abstract phrase, so Build never returns an empty query.
package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// MaxTermLength is the longest accepted supplement or benefit term, in
// characters.
const MaxTermLength = 200

// Strategy names one search strategy.
type Strategy string

const (
	StrategyHighQuality Strategy = "high_quality"
	StrategyRecent      Strategy = "recent"
	StrategyTopTier     Strategy = "top_tier"
	StrategyNegative    Strategy = "negative"
)

// Priority lists every strategy in merge priority order.
func Priority() []Strategy {
	return []Strategy{StrategyHighQuality, StrategyTopTier, StrategyRecent, StrategyNegative}
}

// Enabled returns the strategies switched on in cfg, in priority order.
func Enabled(cfg types.StrategyConfig) []Strategy {
	on := map[Strategy]bool{
		StrategyHighQuality: cfg.HighQuality,
		StrategyRecent:      cfg.Recent,
		StrategyTopTier:     cfg.TopTier,
		StrategyNegative:    cfg.Negative,
	}
	var out []Strategy
	for _, s := range Priority() {
		if on[s] {
			out = append(out, s)
		}
	}
	return out
}

// Options carries the inputs that shape every strategy query.
type Options struct {
	Filters types.Filters

	// ReferenceYear anchors the look-back windows (normally the current year).
	ReferenceYear int

	// HighQualityYears and RecentYears size the strategy windows.
	// Zero uses 15 and 5.
	HighQualityYears int
	RecentYears      int
}

// Built is the query string for one strategy.
type Built struct {
	Strategy Strategy
	Query    string
}

// Build returns one query per requested strategy, in the order given.
// A strategy whose year window does not overlap the caller's year filter
// is left out because it cannot return anything.
func Build(term, benefit string, strategies []Strategy, opts Options) ([]Built, error) {
	supplement, err := SupplementClause(term)
	if err != nil {
		return nil, err
	}

	base := supplement
	if strings.TrimSpace(benefit) != "" {
		b, err := BenefitClause(benefit)
		if err != nil {
			return nil, err
		}
		base = fmt.Sprintf("(%s) AND %s", supplement, b)
	}

	var common []string
	if opts.Filters.HumanOnly {
		common = append(common, "humans[MeSH Terms]")
	}
	if tf := typeFilter(opts.Filters.StudyTypes); tf != "" {
		common = append(common, tf)
	}

	hqYears := opts.HighQualityYears
	if hqYears <= 0 {
		hqYears = 15
	}
	recentYears := opts.RecentYears
	if recentYears <= 0 {
		recentYears = 5
	}

	var out []Built
	for _, s := range strategies {
		clauses := []string{"(" + base + ")"}

		from, to := opts.Filters.YearFrom, opts.Filters.YearTo
		switch s {
		case StrategyHighQuality:
			clauses = append(clauses, typeFilter([]types.StudyType{
				types.StudyRCT, types.StudyMetaAnalysis, types.StudySystematicReview,
			}))
			from = max(from, opts.ReferenceYear-hqYears)
		case StrategyRecent:
			from = max(from, opts.ReferenceYear-recentYears)
		case StrategyTopTier:
			clauses = append(clauses, cochraneJournal)
		case StrategyNegative:
			clauses = append(clauses, NegativeClause())
		default:
			return nil, &types.ValidationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", s)}
		}

		if to > 0 && from > to {
			continue
		}
		if dr := dateRange(from, to); dr != "" {
			clauses = append(clauses, dr)
		}
		clauses = append(clauses, common...)

		out = append(out, Built{Strategy: s, Query: strings.Join(clauses, " AND ")})
	}
	return out, nil
}

// SupplementClause returns the search clause for a supplement term: its
// MeSH descriptor when known, otherwise a quoted title/abstract phrase.
func SupplementClause(term string) (string, error) {
	norm, err := normalize("term", term)
	if err != nil {
		return "", err
	}
	if mesh, ok := meshTerms[norm]; ok {
		return fmt.Sprintf("%q[MeSH Terms]", mesh), nil
	}
	return fmt.Sprintf("%q[Title/Abstract]", norm), nil
}

// BenefitClause returns the benefit term expanded to its known synonyms,
// OR-joined and restricted to title/abstract. Unknown benefits become a
// single quoted phrase.
func BenefitClause(benefit string) (string, error) {
	norm, err := normalize("benefit_term", benefit)
	if err != nil {
		return "", err
	}
	syns, ok := benefitSynonyms[norm]
	if !ok {
		syns = []string{norm}
	}
	return orPhrases(syns, "tiab"), nil
}

// NegativeClause returns the OR-joined null-finding phrases.
func NegativeClause() string {
	return orPhrases(negativePhrases, "tiab")
}

// Normalize returns the cache-stable form of a term: lowercased, trimmed,
// inner whitespace collapsed and query syntax characters removed.
func Normalize(term string) string {
	term = strings.Map(func(r rune) rune {
		switch r {
		case '"', '[', ']', '(', ')', '*', '\\', '<', '>':
			return -1
		}
		return r
	}, term)
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

func normalize(field, term string) (string, error) {
	if utf8.RuneCountInString(term) > MaxTermLength {
		return "", &types.ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d characters", MaxTermLength)}
	}
	norm := Normalize(term)
	if norm == "" {
		return "", &types.ValidationError{Field: field, Reason: "must not be empty"}
	}
	return norm, nil
}

const cochraneJournal = `"Cochrane Database Syst Rev"[Journal]`

// publicationTypes maps study types to PubMed [pt] values.
var publicationTypes = map[types.StudyType]string{
	types.StudyRCT:              "Randomized Controlled Trial",
	types.StudyMetaAnalysis:     "Meta-Analysis",
	types.StudySystematicReview: "Systematic Review",
	types.StudyObservational:    "Observational Study",
}

// typeFilter encodes a study-type restriction. Cochrane reviews are
// expressed through the journal. A list containing "other" cannot be
// encoded and yields no restriction.
func typeFilter(studyTypes []types.StudyType) string {
	var parts []string
	for _, st := range studyTypes {
		switch st {
		case types.StudyOther:
			return ""
		case types.StudyCochraneReview:
			parts = append(parts, cochraneJournal)
		default:
			if pt, ok := publicationTypes[st]; ok {
				parts = append(parts, fmt.Sprintf("%q[pt]", pt))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func dateRange(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf(`("%d"[dp] : "%d"[dp])`, from, to)
	case from > 0:
		return fmt.Sprintf(`("%d"[dp] : "3000"[dp])`, from)
	case to > 0:
		return fmt.Sprintf(`("1800"[dp] : "%d"[dp])`, to)
	default:
		return ""
	}
}

func orPhrases(phrases []string, field string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = fmt.Sprintf("%q[%s]", p, field)
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}
