// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank selects balanced supporting and opposing study lists from an
// evaluated population and summarizes the population as a consensus label
// and a 0-100 confidence score.
package rank

import (
	"math"
	"sort"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	DefaultMinConfidence = 0.5
	DefaultTop           = 5
	MaxTop               = 8

	// insufficientBelow is the smallest qualified population that yields a
	// directional consensus.
	insufficientBelow = 3

	strongRatio   = 0.70
	moderateRatio = 0.55
)

// Rank builds a RankedResult from evaluated studies. Only studies whose
// sentiment confidence is at least MinConfidence enter the supporting and
// opposing lists and the consensus; label counts in the metadata cover the
// whole population.
//
// When fewer negatives than TopNegative qualify, the opposing list is
// back-filled with qualified neutral studies in the same order. A
// low-confidence negative never back-fills.
//
// A MinConfidence of zero or less means DefaultMinConfidence; there is no
// setting that admits zero-confidence results.
func Rank(studies []types.EvaluatedStudy, cfg types.RankConfig) types.RankedResult {
	cfg = withDefaults(cfg)

	var pos, neg, neu []types.EvaluatedStudy
	var meta types.RankedMetadata
	meta.TotalStudies = len(studies)

	for _, s := range studies {
		switch s.Sentiment.Label {
		case types.SentimentPositive:
			meta.PositiveCount++
		case types.SentimentNegative:
			meta.NegativeCount++
		default:
			meta.NeutralCount++
		}

		if s.Sentiment.Confidence < cfg.MinConfidence {
			continue
		}
		s.Backfilled = false
		switch s.Sentiment.Label {
		case types.SentimentPositive:
			pos = append(pos, s)
		case types.SentimentNegative:
			neg = append(neg, s)
		default:
			neu = append(neu, s)
		}
	}
	meta.ConsideredStudies = len(pos) + len(neg) + len(neu)

	Sort(pos)
	Sort(neg)
	Sort(neu)

	supporting := head(pos, cfg.TopPositive)
	opposing := head(neg, cfg.TopNegative)
	for _, s := range neu {
		if len(opposing) >= cfg.TopNegative {
			break
		}
		s.Backfilled = true
		opposing = append(opposing, s)
	}

	meta.AvgSupportingQuality = avgQuality(supporting)
	meta.AvgOpposingQuality = avgQuality(opposing)
	meta.Consensus = Consensus(len(pos), len(neg), len(neu))

	selected := make([]types.EvaluatedStudy, 0, len(supporting)+len(opposing))
	selected = append(append(selected, supporting...), opposing...)
	meta.ConfidenceScore = ConfidenceScore(meta.TotalStudies, len(pos), len(neg), selected)

	return types.RankedResult{
		Supporting: supporting,
		Opposing:   opposing,
		Metadata:   meta,
	}
}

func withDefaults(cfg types.RankConfig) types.RankConfig {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	cfg.TopPositive = clampTop(cfg.TopPositive)
	cfg.TopNegative = clampTop(cfg.TopNegative)
	return cfg
}

func clampTop(n int) int {
	if n <= 0 {
		return DefaultTop
	}
	return min(n, MaxTop)
}

// Sort orders studies by quality score, then sentiment confidence, then
// publication year, all descending, with ID ascending as the final tie
// breaker.
func Sort(studies []types.EvaluatedStudy) {
	sort.SliceStable(studies, func(i, j int) bool {
		a, b := studies[i], studies[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.Sentiment.Confidence != b.Sentiment.Confidence {
			return a.Sentiment.Confidence > b.Sentiment.Confidence
		}
		if a.PublicationYear != b.PublicationYear {
			return a.PublicationYear > b.PublicationYear
		}
		return a.ID < b.ID
	})
}

// SortScored orders scored studies by quality score and publication year,
// both descending, then ID ascending.
func SortScored(studies []types.ScoredStudy) {
	sort.SliceStable(studies, func(i, j int) bool {
		a, b := studies[i], studies[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.PublicationYear != b.PublicationYear {
			return a.PublicationYear > b.PublicationYear
		}
		return a.ID < b.ID
	})
}

func head(s []types.EvaluatedStudy, n int) []types.EvaluatedStudy {
	out := make([]types.EvaluatedStudy, 0, n)
	return append(out, s[:min(n, len(s))]...)
}

// Consensus labels a qualified population. Fewer than three studies is
// always insufficient_data.
func Consensus(positive, negative, neutral int) types.Consensus {
	total := positive + negative + neutral
	if total < insufficientBelow {
		return types.ConsensusInsufficientData
	}
	posRatio := float64(positive) / float64(total)
	negRatio := float64(negative) / float64(total)

	switch {
	case posRatio > strongRatio:
		return types.ConsensusStrongPositive
	case negRatio > strongRatio:
		return types.ConsensusStrongNegative
	case posRatio > moderateRatio:
		return types.ConsensusModeratePositive
	case negRatio > moderateRatio:
		return types.ConsensusModerateNegative
	default:
		return types.ConsensusMixed
	}
}

// ConfidenceScore combines four components into a 0-100 score:
//
//	volume       0-30  total studies >=20 30, >=10 20, >=5 10, else 5
//	quality      0-40  mean quality of the selected studies x 0.4
//	certainty    0-20  mean sentiment confidence of the selected studies x 20
//	consistency  0-10  10 x |pos-neg| / (pos+neg) over qualified studies
func ConfidenceScore(total, positive, negative int, selected []types.EvaluatedStudy) int {
	score := float64(volumePoints(total))

	if len(selected) > 0 {
		var q, c float64
		for _, s := range selected {
			q += float64(s.QualityScore)
			c += s.Sentiment.Confidence
		}
		n := float64(len(selected))
		score += q / n * 0.4
		score += c / n * 20
	}

	if directional := positive + negative; directional > 0 {
		diff := positive - negative
		if diff < 0 {
			diff = -diff
		}
		score += 10 * float64(diff) / float64(directional)
	}

	return int(min(max(math.Round(score), 0), 100))
}

func volumePoints(n int) int {
	switch {
	case n >= 20:
		return 30
	case n >= 10:
		return 20
	case n >= 5:
		return 10
	default:
		return 5
	}
}

func avgQuality(s []types.EvaluatedStudy) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum int
	for _, e := range s {
		sum += e.QualityScore
	}
	return float64(sum) / float64(len(s))
}
