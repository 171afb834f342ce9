// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes a bounded 0-100 methodological quality score for
// a study. Scoring is pure: the same study and reference year always give
// the same score.
//
// The score is the sum of four components:
//
//	methodology  0-50  cochrane 50, meta-analysis 40, systematic review 35,
//	                   RCT 30, observational 10, other 0 (highest tag wins)
//	recency      0-20  age <=2y 20, <=5y 15, <=10y 10, older 5, unknown 0
//	sample size  0-20  >=1000 20, >=500 15, >=100 10, <100 5, unknown 0
//	venue        0-5   top 5, high 4, standard 2, unranked 0
//
// Tiers: >=85 exceptional, >=70 high, >=50 good, >=30 moderate, else low.
package score

import (
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	MaxScore = 100
	MinScore = 0
)

var methodologyPoints = map[types.StudyType]int{
	types.StudyCochraneReview:   50,
	types.StudyMetaAnalysis:     40,
	types.StudySystematicReview: 35,
	types.StudyRCT:              30,
	types.StudyObservational:    10,
	types.StudyOther:            0,
}

var venuePoints = map[types.VenueTier]int{
	types.VenueTop:      5,
	types.VenueHigh:     4,
	types.VenueStandard: 2,
	types.VenueUnranked: 0,
}

// Scorer scores studies relative to ReferenceYear.
type Scorer struct {
	// ReferenceYear is the year recency is measured from, normally the
	// current year. It is injected so scoring stays deterministic.
	ReferenceYear int
}

// Breakdown is the per-component score of one study.
type Breakdown struct {
	Methodology int `json:"methodology" yaml:"methodology"`
	Recency     int `json:"recency" yaml:"recency"`
	SampleSize  int `json:"sample_size" yaml:"sample_size"`
	Venue       int `json:"venue" yaml:"venue"`
}

// Total returns the clamped sum of the components.
func (b Breakdown) Total() int {
	return clamp(b.Methodology + b.Recency + b.SampleSize + b.Venue)
}

// Score returns s with its quality score and tier.
func (sc Scorer) Score(s types.Study) types.ScoredStudy {
	total := sc.Breakdown(s).Total()
	return types.ScoredStudy{
		Study:        s,
		QualityScore: total,
		QualityTier:  Tier(total),
	}
}

// ScoreAll scores every study, preserving order.
func (sc Scorer) ScoreAll(studies []types.Study) []types.ScoredStudy {
	out := make([]types.ScoredStudy, len(studies))
	for i, s := range studies {
		out[i] = sc.Score(s)
	}
	return out
}

// Breakdown returns the individual components for s.
func (sc Scorer) Breakdown(s types.Study) Breakdown {
	return Breakdown{
		Methodology: Methodology(s.StudyTypes),
		Recency:     Recency(s.PublicationYear, sc.ReferenceYear),
		SampleSize:  SampleSize(s.SampleSize),
		Venue:       Venue(s.VenueTier),
	}
}

// Methodology returns the points of the highest-ranked tag present.
func Methodology(tags []types.StudyType) int {
	best := 0
	for _, t := range tags {
		best = max(best, methodologyPoints[t])
	}
	return best
}

// Recency scores publication age. Years after the reference year count as
// age zero; an unknown year (0) scores nothing.
func Recency(year, referenceYear int) int {
	if year <= 0 {
		return 0
	}
	age := max(referenceYear-year, 0)
	switch {
	case age <= 2:
		return 20
	case age <= 5:
		return 15
	case age <= 10:
		return 10
	default:
		return 5
	}
}

// SampleSize scores the participant count. Nil means unknown.
func SampleSize(n *int) int {
	if n == nil {
		return 0
	}
	switch {
	case *n >= 1000:
		return 20
	case *n >= 500:
		return 15
	case *n >= 100:
		return 10
	default:
		return 5
	}
}

// Venue scores the journal tier. Empty counts as unranked.
func Venue(t types.VenueTier) int {
	return venuePoints[t]
}

// Tier buckets a score.
func Tier(score int) types.QualityTier {
	switch {
	case score >= 85:
		return types.TierExceptional
	case score >= 70:
		return types.TierHigh
	case score >= 50:
		return types.TierGood
	case score >= 30:
		return types.TierModerate
	default:
		return types.TierLow
	}
}

func clamp(v int) int {
	return min(max(v, MinScore), MaxScore)
}
