// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func intp(n int) *int { return &n }

func TestScore(t *testing.T) {
	sc := Scorer{ReferenceYear: 2026}
	tests := []struct {
		name  string
		study types.Study
		want  int
		tier  types.QualityTier
	}{
		{
			name: "cochrane review, recent, large, top venue",
			study: types.Study{
				StudyTypes:      []types.StudyType{types.StudySystematicReview, types.StudyCochraneReview},
				PublicationYear: 2025,
				SampleSize:      intp(5000),
				VenueTier:       types.VenueTop,
			},
			want: 95,
			tier: types.TierExceptional,
		},
		{
			name: "RCT, 4 years old, 600 participants, high venue",
			study: types.Study{
				StudyTypes:      []types.StudyType{types.StudyRCT},
				PublicationYear: 2022,
				SampleSize:      intp(600),
				VenueTier:       types.VenueHigh,
			},
			want: 64,
			tier: types.TierGood,
		},
		{
			name: "observational, old, small, standard venue",
			study: types.Study{
				StudyTypes:      []types.StudyType{types.StudyObservational},
				PublicationYear: 2001,
				SampleSize:      intp(40),
				VenueTier:       types.VenueStandard,
			},
			want: 22,
			tier: types.TierLow,
		},
		{
			name:  "nothing known",
			study: types.Study{},
			want:  0,
			tier:  types.TierLow,
		},
		{
			name: "meta-analysis with future year",
			study: types.Study{
				StudyTypes:      []types.StudyType{types.StudyMetaAnalysis},
				PublicationYear: 2027,
				SampleSize:      intp(150),
			},
			want: 70,
			tier: types.TierHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sc.Score(tt.study)
			assert.Equal(t, tt.want, got.QualityScore)
			assert.Equal(t, tt.tier, got.QualityTier)
		})
	}
}

func TestRecency(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{2026, 20}, {2024, 20}, {2023, 15}, {2021, 15}, {2020, 10}, {2016, 10}, {2015, 5}, {1950, 5}, {0, 0}, {2030, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Recency(tt.year, 2026), "year %d", tt.year)
	}
}

func TestSampleSize(t *testing.T) {
	assert.Equal(t, 0, SampleSize(nil))
	assert.Equal(t, 5, SampleSize(intp(99)))
	assert.Equal(t, 10, SampleSize(intp(100)))
	assert.Equal(t, 15, SampleSize(intp(500)))
	assert.Equal(t, 20, SampleSize(intp(1000)))
}

func TestMethodologyHighestTagWins(t *testing.T) {
	assert.Equal(t, 40, Methodology([]types.StudyType{types.StudyRCT, types.StudyMetaAnalysis, types.StudyOther}))
	assert.Equal(t, 0, Methodology(nil))
	assert.Equal(t, 0, Methodology([]types.StudyType{"unknown_tag"}))
}

func TestVenue(t *testing.T) {
	assert.Equal(t, 0, Venue(""))
	assert.Equal(t, 5, Venue(types.VenueTop))
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, types.TierExceptional, Tier(85))
	assert.Equal(t, types.TierHigh, Tier(84))
	assert.Equal(t, types.TierHigh, Tier(70))
	assert.Equal(t, types.TierGood, Tier(69))
	assert.Equal(t, types.TierGood, Tier(50))
	assert.Equal(t, types.TierModerate, Tier(49))
	assert.Equal(t, types.TierModerate, Tier(30))
	assert.Equal(t, types.TierLow, Tier(29))
}

func randomStudy(r *rand.Rand) types.Study {
	all := types.AllStudyTypes()
	var tags []types.StudyType
	for i := 0; i < r.Intn(4); i++ {
		tags = append(tags, all[r.Intn(len(all))])
	}
	venues := []types.VenueTier{"", types.VenueTop, types.VenueHigh, types.VenueStandard, types.VenueUnranked}
	s := types.Study{
		ID:              "x",
		StudyTypes:      tags,
		PublicationYear: r.Intn(3000),
		VenueTier:       venues[r.Intn(len(venues))],
	}
	if r.Intn(2) == 0 {
		s.SampleSize = intp(r.Intn(100000) - 10)
	}
	return s
}

func TestScoreBoundsAndDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	sc := Scorer{ReferenceYear: 2026}
	for i := 0; i < 2000; i++ {
		s := randomStudy(r)
		first := sc.Score(s)
		assert.GreaterOrEqual(t, first.QualityScore, 0)
		assert.LessOrEqual(t, first.QualityScore, 100)
		for j := 0; j < 3; j++ {
			assert.Equal(t, first, sc.Score(s))
		}
	}
}

func TestScoreAllPreservesOrder(t *testing.T) {
	sc := Scorer{ReferenceYear: 2026}
	studies := []types.Study{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := sc.ScoreAll(studies)
	assert.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, studies[i].ID, s.ID)
	}
}
