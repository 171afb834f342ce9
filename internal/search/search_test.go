// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/literature"
	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- mock literature client ---

// mockLiterature routes each query to a strategy by matching a marker
// substring of the built query.
type mockLiterature struct {
	mu       sync.Mutex
	ids      map[query.Strategy][]string
	errs     map[query.Strategy]error
	records  map[string]types.Study
	searched []string
	multi    int
}

func newMock() *mockLiterature {
	return &mockLiterature{
		ids:     map[query.Strategy][]string{},
		errs:    map[query.Strategy]error{},
		records: map[string]types.Study{},
	}
}

func strategyOf(q string) query.Strategy {
	switch {
	case strings.Contains(q, "[pt]"):
		return query.StrategyHighQuality
	case strings.Contains(q, "[Journal]"):
		return query.StrategyTopTier
	case strings.Contains(q, "no effect"):
		return query.StrategyNegative
	default:
		return query.StrategyRecent
	}
}

func (m *mockLiterature) Search(_ context.Context, q string, maxResults int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, q)
	s := strategyOf(q)
	if err := m.errs[s]; err != nil {
		return nil, err
	}
	ids := m.ids[s]
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (m *mockLiterature) Fetch(_ context.Context, ids []string) ([]types.Study, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Study
	for _, id := range ids {
		if s, ok := m.records[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockLiterature) MultiSearch(ctx context.Context, queries []string, maxResults int) (literature.MultiResult, error) {
	m.mu.Lock()
	m.multi++
	m.mu.Unlock()
	res := literature.MultiResult{History: true}
	for _, q := range queries {
		qr := literature.QueryResult{Query: q}
		ids, err := m.Search(ctx, q, maxResults)
		if err != nil {
			qr.Err = err
		} else {
			qr.Studies, _ = m.Fetch(ctx, ids)
		}
		res.Results = append(res.Results, qr)
	}
	return res, nil
}

func (m *mockLiterature) add(s query.Strategy, titlePrefix string, ids ...string) {
	for _, id := range ids {
		m.ids[s] = append(m.ids[s], id)
		if _, ok := m.records[id]; !ok {
			m.records[id] = types.Study{ID: id, Title: titlePrefix + id}
		}
	}
}

func allStrategies() types.StrategyConfig {
	cfg := types.DefaultEngineConfig().Strategies
	return cfg
}

func testRequest() Request {
	return Request{Term: "magnesium", Strategies: allStrategies(), ReferenceYear: 2026}
}

// --- Run ---

func TestRun_PriorityOrderAndDedup(t *testing.T) {
	m := newMock()
	m.add(query.StrategyRecent, "recent-", "r1", "shared")
	m.add(query.StrategyNegative, "neg-", "n1", "shared")
	m.add(query.StrategyHighQuality, "hq-", "h1", "h2")
	m.add(query.StrategyTopTier, "top-", "c1", "h1")

	out, err := New(m, zerolog.Nop()).Run(context.Background(), testRequest())
	require.NoError(t, err)

	var ids []string
	for _, s := range out.Studies {
		ids = append(ids, s.ID)
	}
	// high_quality > top_tier > recent > negative
	assert.Equal(t, []string{"h1", "h2", "c1", "r1", "shared", "n1"}, ids)
	assert.Equal(t, 2, out.DupsRemoved)
	assert.Equal(t, []string{"high_quality", "top_tier", "recent", "negative"}, out.StrategiesRun)
	assert.Empty(t, out.StrategyErrors)

	byID := map[string]types.Study{}
	for _, s := range out.Studies {
		byID[s.ID] = s
	}
	assert.Equal(t, []string{"high_quality", "top_tier"}, byID["h1"].FoundBy)
	assert.Equal(t, []string{"recent", "negative"}, byID["shared"].FoundBy)
	assert.Equal(t, "hq-h1", byID["h1"].Title, "first-seen record wins")
}

func TestRun_NoDuplicateIDs(t *testing.T) {
	m := newMock()
	for _, s := range query.Priority() {
		for i := 0; i < 30; i++ {
			m.add(s, string(s)+"-", fmt.Sprintf("id-%d", (i*7)%40))
		}
	}

	out, err := New(m, zerolog.Nop()).Run(context.Background(), testRequest())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, s := range out.Studies {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestRun_StrategyFailureIsIsolated(t *testing.T) {
	m := newMock()
	m.add(query.StrategyRecent, "recent-", "r1")
	m.add(query.StrategyHighQuality, "hq-", "h1")
	m.errs[query.StrategyTopTier] = &types.UpstreamError{Op: "search", Status: 502}
	m.errs[query.StrategyNegative] = errors.New("connection reset")

	out, err := New(m, zerolog.Nop()).Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, out.Studies, 2)
	require.Len(t, out.StrategyErrors, 2)
	assert.Contains(t, out.StrategyErrors[0], "top_tier")
	assert.Contains(t, out.StrategyErrors[1], "negative")
}

func TestRun_AllStrategiesFail(t *testing.T) {
	m := newMock()
	for _, s := range query.Priority() {
		m.errs[s] = errors.New("down")
	}

	out, err := New(m, zerolog.Nop()).Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.Len(t, out.StrategyErrors, 4)
}

func TestRun_EmptyIsNotAnError(t *testing.T) {
	m := newMock()
	out, err := New(m, zerolog.Nop()).Run(context.Background(), Request{
		Term: "rare-herb-x", Strategies: allStrategies(), ReferenceYear: 2026,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Studies)
	assert.Len(t, out.StrategiesRun, 4)
}

func TestRun_TruncatesToMaxResults(t *testing.T) {
	m := newMock()
	for i := 0; i < 10; i++ {
		m.add(query.StrategyHighQuality, "hq-", fmt.Sprintf("h%d", i))
		m.add(query.StrategyNegative, "neg-", fmt.Sprintf("n%d", i))
	}
	req := testRequest()
	req.MaxResults = 12

	out, err := New(m, zerolog.Nop()).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Studies, 12)
	assert.Equal(t, 8, out.Truncated)
	// Lower-priority strategies are cut first.
	assert.Equal(t, "h9", out.Studies[9].ID)
	assert.Equal(t, "n1", out.Studies[11].ID)
}

func TestRun_DefaultMaxResults(t *testing.T) {
	m := newMock()
	for i := 0; i < 150; i++ {
		m.add(query.StrategyHighQuality, "hq-", fmt.Sprintf("h%d", i))
		m.add(query.StrategyRecent, "recent-", fmt.Sprintf("r%d", i))
	}
	req := testRequest()
	req.Strategies.MaxResults = 0
	req.Strategies.PerStrategyMax = 150

	out, err := New(m, zerolog.Nop()).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, out.Studies, DefaultMaxResults)
}

func TestRun_OnlyEnabledStrategies(t *testing.T) {
	m := newMock()
	m.add(query.StrategyRecent, "recent-", "r1")
	m.add(query.StrategyNegative, "neg-", "n1")

	req := testRequest()
	req.Strategies.HighQuality = false
	req.Strategies.TopTier = false
	req.Strategies.Negative = false

	out, err := New(m, zerolog.Nop()).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"recent"}, out.StrategiesRun)
	require.Len(t, out.Studies, 1)
	assert.Equal(t, "r1", out.Studies[0].ID)
	assert.Len(t, m.searched, 1)
}

func TestRun_NoStrategiesEnabled(t *testing.T) {
	_, err := New(newMock(), zerolog.Nop()).Run(context.Background(), Request{Term: "zinc"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRun_InvalidTerm(t *testing.T) {
	_, err := New(newMock(), zerolog.Nop()).Run(context.Background(), Request{Term: "  ", Strategies: allStrategies()})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRun_Batched(t *testing.T) {
	m := newMock()
	m.add(query.StrategyHighQuality, "hq-", "h1", "x")
	m.add(query.StrategyRecent, "recent-", "x", "r1")
	m.errs[query.StrategyNegative] = errors.New("bad query")

	req := testRequest()
	req.Strategies.Batched = true

	out, err := New(m, zerolog.Nop()).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, m.multi)

	var ids []string
	for _, s := range out.Studies {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"h1", "x", "r1"}, ids)
	require.Len(t, out.StrategyErrors, 1)
	assert.Contains(t, out.StrategyErrors[0], "negative")
}

// --- merge ---

func TestMerge(t *testing.T) {
	results := []strategyResult{
		{strategy: query.StrategyHighQuality, studies: []types.Study{{ID: "a", Title: "A1"}, {ID: "b"}}},
		{strategy: query.StrategyRecent, studies: []types.Study{{ID: "a", Title: "A2"}, {ID: ""}, {ID: "c"}}},
	}
	merged, removed := merge(results)
	require.Len(t, merged, 3)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "A1", merged[0].Title)
	assert.Equal(t, []string{"high_quality", "recent"}, merged[0].FoundBy)
	assert.Equal(t, []string{"recent"}, merged[2].FoundBy)
}
