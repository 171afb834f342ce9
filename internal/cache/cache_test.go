// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func sampleResult() *types.RankedResult {
	n := 120
	return &types.RankedResult{
		Term: "magnesium",
		Supporting: []types.EvaluatedStudy{{
			ScoredStudy: types.ScoredStudy{
				Study: types.Study{
					ID:              "34567890",
					Title:           "Magnesium and sleep",
					PublicationYear: 2021,
					StudyTypes:      []types.StudyType{types.StudyRCT},
					SampleSize:      &n,
					VenueTier:       types.VenueHigh,
				},
				QualityScore: 64,
				QualityTier:  types.TierGood,
			},
			Sentiment: types.SentimentResult{Label: types.SentimentPositive, Confidence: 0.8, Classified: true},
		}},
		Metadata: types.RankedMetadata{
			TotalStudies:    1,
			PositiveCount:   1,
			Consensus:       types.ConsensusInsufficientData,
			ConfidenceScore: 42,
		},
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKeyNormalizes(t *testing.T) {
	a := Key(types.RankRequest{Term: "Magnesium ", BenefitTerm: "Sleep"})
	b := Key(types.RankRequest{Term: "magnesium", BenefitTerm: "  sleep"})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "evidence:v1:")

	c := Key(types.RankRequest{Term: "magnesium"})
	assert.NotEqual(t, a, c)
}

func TestKeyIgnoresTimeoutAndOrder(t *testing.T) {
	a := Key(types.RankRequest{
		Term:      "zinc",
		Timeout:   time.Second,
		SkipCache: true,
		Filters:   types.Filters{StudyTypes: []types.StudyType{types.StudyRCT, types.StudyMetaAnalysis}},
	})
	b := Key(types.RankRequest{
		Term:    "zinc",
		Filters: types.Filters{StudyTypes: []types.StudyType{types.StudyMetaAnalysis, types.StudyRCT, types.StudyRCT}},
	})
	assert.Equal(t, a, b)

	c := Key(types.RankRequest{Term: "zinc", Filters: types.Filters{YearFrom: 2010}})
	assert.NotEqual(t, b, c)
}

func TestStores(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.db"))
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadger(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { assert.NoError(t, s.Close()) })
			ctx := context.Background()

			got, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, got)

			want := sampleResult()
			require.NoError(t, s.Set(ctx, "k", want, time.Hour))

			got, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.Term, got.Term)
			assert.Equal(t, want.Metadata, got.Metadata)
			require.Len(t, got.Supporting, 1)
			assert.Equal(t, want.Supporting[0].ID, got.Supporting[0].ID)
			assert.Equal(t, 120, *got.Supporting[0].SampleSize)
			assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))

			// Overwrite.
			want.Metadata.ConfidenceScore = 77
			require.NoError(t, s.Set(ctx, "k", want, time.Hour))
			got, _, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, 77, got.Metadata.ConfidenceScore)

			require.NoError(t, s.Delete(ctx, "k"))
			require.NoError(t, s.Delete(ctx, "k"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", sampleResult(), time.Minute))
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", sampleResult(), time.Hour))

	a, _, _ := m.Get(ctx, "k")
	a.Term = "changed"
	b, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "magnesium", b.Term)
}

func TestSQLiteExpiryAndPurge(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "old", sampleResult(), time.Minute))
	require.NoError(t, s.Set(ctx, "new", sampleResult(), time.Hour))

	now = now.Add(2 * time.Minute)
	_, ok, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err = s.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNone(t *testing.T) {
	var s Store = None{}
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", sampleResult(), time.Hour))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Delete(ctx, "k"))
	assert.NoError(t, s.Close())
}

func TestOpen(t *testing.T) {
	s, err := Open(types.CacheConfig{Backend: types.CacheNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, None{}, s)

	s, err = Open(types.CacheConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(types.CacheConfig{Backend: types.CacheSQLite, Path: filepath.Join(t.TempDir(), "c.db")}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	assert.NoError(t, s.Close())

	_, err = Open(types.CacheConfig{Backend: types.CacheSQLite}, zerolog.Nop())
	assert.Error(t, err)

	_, err = Open(types.CacheConfig{Backend: "memcached"}, zerolog.Nop())
	assert.ErrorContains(t, err, "memcached")
}

func TestOpenRedisUnreachable(t *testing.T) {
	_, err := Open(types.CacheConfig{Backend: types.CacheRedis, RedisAddr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")

	_, err = OpenRedis(types.CacheConfig{})
	assert.ErrorContains(t, err, "redis_addr")
}
