// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func evaluated(id string, quality int, label types.SentimentLabel, conf float64) types.EvaluatedStudy {
	return types.EvaluatedStudy{
		ScoredStudy: types.ScoredStudy{
			Study:        types.Study{ID: id, PublicationYear: 2020},
			QualityScore: quality,
		},
		Sentiment: types.SentimentResult{Label: label, Confidence: conf, Classified: conf > 0},
	}
}

func many(prefix string, n, quality int, label types.SentimentLabel, conf float64) []types.EvaluatedStudy {
	out := make([]types.EvaluatedStudy, n)
	for i := range out {
		out[i] = evaluated(fmt.Sprintf("%s%02d", prefix, i), quality, label, conf)
	}
	return out
}

func ids(s []types.EvaluatedStudy) []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.ID
	}
	return out
}

func TestRankMagnesiumScenario(t *testing.T) {
	studies := append(
		many("pos", 32, 60, types.SentimentPositive, 0.8),
		many("neg", 8, 60, types.SentimentNegative, 0.7)...,
	)
	got := Rank(studies, types.RankConfig{MinConfidence: 0.5, TopPositive: 5, TopNegative: 5})

	assert.Len(t, got.Supporting, 5)
	assert.Len(t, got.Opposing, 5)
	for _, s := range got.Opposing {
		assert.Equal(t, types.SentimentNegative, s.Sentiment.Label)
		assert.False(t, s.Backfilled)
	}
	assert.Equal(t, types.ConsensusStrongPositive, got.Metadata.Consensus)
	assert.Equal(t, 40, got.Metadata.TotalStudies)
	assert.Equal(t, 40, got.Metadata.ConsideredStudies)
	assert.Equal(t, 32, got.Metadata.PositiveCount)
	assert.Equal(t, 8, got.Metadata.NegativeCount)
	assert.Equal(t, 0, got.Metadata.NeutralCount)
	assert.InDelta(t, 60.0, got.Metadata.AvgSupportingQuality, 1e-9)
	// 30 volume + 24 quality + 15 certainty + 6 consistency
	assert.Equal(t, 75, got.Metadata.ConfidenceScore)
}

func TestRankBackfill(t *testing.T) {
	studies := []types.EvaluatedStudy{
		evaluated("p1", 80, types.SentimentPositive, 0.9),
		evaluated("p2", 70, types.SentimentPositive, 0.9),
		evaluated("n1", 50, types.SentimentNegative, 0.8),
		evaluated("n2", 40, types.SentimentNegative, 0.6),
		evaluated("nlow", 95, types.SentimentNegative, 0.3),
		evaluated("u1", 90, types.SentimentNeutral, 0.7),
		evaluated("u2", 30, types.SentimentNeutral, 0.9),
		evaluated("u3", 60, types.SentimentNeutral, 0.5),
		evaluated("u4", 20, types.SentimentNeutral, 0.5),
		evaluated("failed", 99, types.SentimentNeutral, 0),
	}
	got := Rank(studies, types.RankConfig{TopPositive: 5, TopNegative: 5})

	assert.Equal(t, []string{"p1", "p2"}, ids(got.Supporting))
	require.Equal(t, []string{"n1", "n2", "u1", "u3", "u2"}, ids(got.Opposing))
	assert.False(t, got.Opposing[0].Backfilled)
	assert.False(t, got.Opposing[1].Backfilled)
	for _, s := range got.Opposing[2:] {
		assert.True(t, s.Backfilled)
	}

	assert.Equal(t, 10, got.Metadata.TotalStudies)
	assert.Equal(t, 8, got.Metadata.ConsideredStudies)
	assert.Equal(t, 3, got.Metadata.NegativeCount)
	assert.Equal(t, 5, got.Metadata.NeutralCount)
}

func TestRankBackfillReachesAvailable(t *testing.T) {
	for negatives := 0; negatives <= 6; negatives++ {
		for neutrals := 0; neutrals <= 6; neutrals++ {
			studies := append(
				many("neg", negatives, 50, types.SentimentNegative, 0.8),
				many("neu", neutrals, 50, types.SentimentNeutral, 0.8)...,
			)
			studies = append(studies, many("pos", 4, 50, types.SentimentPositive, 0.8)...)
			got := Rank(studies, types.RankConfig{TopPositive: 5, TopNegative: 5})

			assert.Len(t, got.Opposing, min(5, negatives+neutrals), "neg=%d neu=%d", negatives, neutrals)
			seen := map[string]bool{}
			for _, s := range got.Supporting {
				seen[s.ID] = true
			}
			for _, s := range got.Opposing {
				assert.False(t, seen[s.ID], "%s in both lists", s.ID)
			}
		}
	}
}

func TestRankFailOpenCountsButNotPlaced(t *testing.T) {
	studies := many("x", 4, 50, types.SentimentNeutral, 0)
	got := Rank(studies, types.RankConfig{})

	assert.Empty(t, got.Supporting)
	assert.Empty(t, got.Opposing)
	assert.Equal(t, 4, got.Metadata.TotalStudies)
	assert.Equal(t, 4, got.Metadata.NeutralCount)
	assert.Equal(t, 0, got.Metadata.ConsideredStudies)
	assert.Equal(t, types.ConsensusInsufficientData, got.Metadata.Consensus)
	assert.Equal(t, 5, got.Metadata.ConfidenceScore)
}

func TestRankNonPositiveMinConfidenceUsesDefault(t *testing.T) {
	studies := append(
		many("low", 3, 90, types.SentimentPositive, 0.4),
		evaluated("high", 50, types.SentimentPositive, 0.6),
		evaluated("failed", 99, types.SentimentNeutral, 0),
	)
	want := Rank(studies, types.RankConfig{MinConfidence: DefaultMinConfidence})
	require.Equal(t, []string{"high"}, ids(want.Supporting))

	for _, minConf := range []float64{0, -1} {
		got := Rank(studies, types.RankConfig{MinConfidence: minConf})
		assert.Equal(t, ids(want.Supporting), ids(got.Supporting), "min_confidence=%v", minConf)
		assert.Empty(t, got.Opposing, "min_confidence=%v", minConf)
		assert.Equal(t, want.Metadata, got.Metadata, "min_confidence=%v", minConf)
	}
}

func TestRankTopClamped(t *testing.T) {
	studies := many("p", 12, 50, types.SentimentPositive, 0.9)
	got := Rank(studies, types.RankConfig{TopPositive: 20})
	assert.Len(t, got.Supporting, MaxTop)

	got = Rank(studies, types.RankConfig{})
	assert.Len(t, got.Supporting, DefaultTop)
}

func TestSortOrder(t *testing.T) {
	a := evaluated("a", 70, types.SentimentPositive, 0.6)
	b := evaluated("b", 70, types.SentimentPositive, 0.9)
	c := evaluated("c", 70, types.SentimentPositive, 0.6)
	c.PublicationYear = 2024
	d := evaluated("d", 90, types.SentimentPositive, 0.5)
	e := evaluated("0e", 70, types.SentimentPositive, 0.6)

	s := []types.EvaluatedStudy{a, b, c, d, e}
	Sort(s)
	assert.Equal(t, []string{"d", "b", "c", "0e", "a"}, ids(s))
}

func TestConsensusBoundaries(t *testing.T) {
	tests := []struct {
		pos, neg, neu int
		want          types.Consensus
	}{
		{0, 0, 0, types.ConsensusInsufficientData},
		{1, 0, 0, types.ConsensusInsufficientData},
		{2, 0, 0, types.ConsensusInsufficientData},
		{0, 2, 0, types.ConsensusInsufficientData},
		{1, 1, 0, types.ConsensusInsufficientData},
		{3, 0, 0, types.ConsensusStrongPositive},
		{0, 3, 0, types.ConsensusStrongNegative},
		{8, 2, 0, types.ConsensusStrongPositive},
		{7, 3, 0, types.ConsensusModeratePositive},
		{2, 7, 1, types.ConsensusModerateNegative},
		{12, 8, 0, types.ConsensusModeratePositive},
		{11, 9, 0, types.ConsensusMixed},
		{1, 1, 1, types.ConsensusMixed},
		{2, 0, 8, types.ConsensusMixed},
		{32, 8, 0, types.ConsensusStrongPositive},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d/%d", tt.pos, tt.neg, tt.neu), func(t *testing.T) {
			assert.Equal(t, tt.want, Consensus(tt.pos, tt.neg, tt.neu))
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 5, ConfidenceScore(0, 0, 0, nil))
	assert.Equal(t, 10, ConfidenceScore(5, 0, 0, nil))
	assert.Equal(t, 20, ConfidenceScore(10, 0, 0, nil))

	top := many("t", 2, 100, types.SentimentPositive, 1)
	// 30 + 40 + 20 + 10
	assert.Equal(t, 100, ConfidenceScore(50, 20, 0, top))

	// Evenly split direction earns no consistency points.
	assert.Equal(t, 30, ConfidenceScore(20, 5, 5, nil))
}

func TestConfidenceScoreBounds(t *testing.T) {
	for total := 0; total < 30; total += 3 {
		for pos := 0; pos < 10; pos++ {
			for neg := 0; neg < 10; neg++ {
				sel := many("s", pos%4, pos*11, types.SentimentPositive, float64(neg)/9)
				got := ConfidenceScore(total, pos, neg, sel)
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		}
	}
}

func TestSortScored(t *testing.T) {
	s := []types.ScoredStudy{
		{Study: types.Study{ID: "b", PublicationYear: 2020}, QualityScore: 50},
		{Study: types.Study{ID: "a", PublicationYear: 2020}, QualityScore: 50},
		{Study: types.Study{ID: "c", PublicationYear: 2024}, QualityScore: 50},
		{Study: types.Study{ID: "d", PublicationYear: 1999}, QualityScore: 80},
	}
	SortScored(s)
	got := make([]string, len(s))
	for i, x := range s {
		got[i] = x.ID
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, got)
}
