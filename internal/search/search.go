// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs the complementary search strategies for one query,
// merges their results in strategy priority order and deduplicates them by
// study ID.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/literature"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// DefaultMaxResults caps the merged study set when the request sets none.
const DefaultMaxResults = 200

// Literature is the subset of the literature client the orchestrator needs.
// *literature.Client implements it.
type Literature interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	Fetch(ctx context.Context, ids []string) ([]types.Study, error)
	MultiSearch(ctx context.Context, queries []string, maxResults int) (literature.MultiResult, error)
}

// Request describes one search session. Strategies is passed per call so
// concurrent sessions may run different strategy sets.
type Request struct {
	Term       string
	Benefit    string
	Filters    types.Filters
	Strategies types.StrategyConfig

	// MaxResults overrides Strategies.MaxResults when positive.
	MaxResults int

	// ReferenceYear anchors the strategy year windows.
	ReferenceYear int
}

// Output holds the merged studies and per-strategy bookkeeping.
type Output struct {
	Studies        []types.Study
	StrategiesRun  []string
	StrategyErrors []string
	DupsRemoved    int
	Truncated      int
}

// Orchestrator fans a query out over the enabled strategies.
type Orchestrator struct {
	lit    Literature
	logger zerolog.Logger
}

// New creates an Orchestrator backed by lit.
func New(lit Literature, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		lit:    lit,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

// strategyResult is what one strategy contributes to the merge.
type strategyResult struct {
	strategy query.Strategy
	studies  []types.Study
	err      error
}

// Run executes every enabled strategy concurrently and waits for all of
// them. A failed strategy is logged and left out of the merge. Run returns
// an *types.UpstreamError only when every strategy fails. Zero studies with
// at least one successful strategy is a valid, empty Output.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Output, error) {
	enabled := query.Enabled(req.Strategies)
	if len(enabled) == 0 {
		return Output{}, &types.ValidationError{Field: "strategies", Reason: "no search strategy enabled"}
	}

	built, err := query.Build(req.Term, req.Benefit, enabled, query.Options{
		Filters:          req.Filters,
		ReferenceYear:    req.ReferenceYear,
		HighQualityYears: req.Strategies.HighQualityYears,
		RecentYears:      req.Strategies.RecentYears,
	})
	if err != nil {
		return Output{}, err
	}

	var out Output
	for _, b := range built {
		out.StrategiesRun = append(out.StrategiesRun, string(b.Strategy))
	}
	if len(built) == 0 {
		o.logger.Debug().Str("term", req.Term).Msg("no strategy window overlaps the requested years")
		return out, nil
	}

	perStrategy := req.Strategies.PerStrategyMax
	if perStrategy <= 0 {
		perStrategy = 100
	}

	var results []strategyResult
	if req.Strategies.Batched {
		results, err = o.runBatched(ctx, built, perStrategy)
		if err != nil {
			return Output{}, &types.UpstreamError{Op: "search", Err: err}
		}
	} else {
		results = o.runConcurrent(ctx, built, perStrategy)
	}

	var errs []error
	ok := make([]strategyResult, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			o.logger.Warn().Err(r.err).Str("strategy", string(r.strategy)).Msg("strategy failed")
			metrics.StrategyOutcomes.WithLabelValues(string(r.strategy), "error").Inc()
			out.StrategyErrors = append(out.StrategyErrors, fmt.Sprintf("%s: %v", r.strategy, r.err))
			errs = append(errs, fmt.Errorf("%s: %w", r.strategy, r.err))
			continue
		}
		outcome := "ok"
		if len(r.studies) == 0 {
			outcome = "empty"
		}
		metrics.StrategyOutcomes.WithLabelValues(string(r.strategy), outcome).Inc()
		ok = append(ok, r)
	}

	if len(ok) == 0 {
		return out, &types.UpstreamError{
			Op:  "search",
			Err: fmt.Errorf("all %d strategies failed: %w", len(results), errors.Join(errs...)),
		}
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = req.Strategies.MaxResults
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	out.Studies, out.DupsRemoved = merge(ok)
	if len(out.Studies) > maxResults {
		out.Truncated = len(out.Studies) - maxResults
		out.Studies = out.Studies[:maxResults]
	}

	o.logger.Info().
		Str("term", req.Term).
		Int("studies", len(out.Studies)).
		Int("duplicates", out.DupsRemoved).
		Int("truncated", out.Truncated).
		Int("failed_strategies", len(out.StrategyErrors)).
		Msg("search complete")
	return out, nil
}

// runConcurrent runs one Search+Fetch pair per strategy in its own
// goroutine. Results come back in the order of built.
func (o *Orchestrator) runConcurrent(ctx context.Context, built []query.Built, perStrategy int) []strategyResult {
	type indexed struct {
		idx int
		res strategyResult
	}

	ch := make(chan indexed, len(built))
	for i, b := range built {
		go func(i int, b query.Built) {
			start := time.Now()
			res := strategyResult{strategy: b.Strategy}
			ids, err := o.lit.Search(ctx, b.Query, perStrategy)
			if err == nil && len(ids) > 0 {
				res.studies, err = o.lit.Fetch(ctx, ids)
			}
			res.err = err
			o.logger.Debug().
				Str("strategy", string(b.Strategy)).
				Int("ids", len(ids)).
				Int("studies", len(res.studies)).
				Dur("elapsed", time.Since(start)).
				Msg("strategy finished")
			ch <- indexed{idx: i, res: res}
		}(i, b)
	}

	results := make([]strategyResult, len(built))
	for range built {
		r := <-ch
		results[r.idx] = r.res
	}
	return results
}

// runBatched routes every strategy through one history-server session.
func (o *Orchestrator) runBatched(ctx context.Context, built []query.Built, perStrategy int) ([]strategyResult, error) {
	queries := make([]string, len(built))
	for i, b := range built {
		queries[i] = b.Query
	}

	mr, err := o.lit.MultiSearch(ctx, queries, perStrategy)
	if err != nil {
		return nil, err
	}
	if len(mr.Results) != len(built) {
		return nil, fmt.Errorf("multi-search returned %d results for %d queries", len(mr.Results), len(built))
	}

	results := make([]strategyResult, len(built))
	for i, b := range built {
		results[i] = strategyResult{
			strategy: b.Strategy,
			studies:  mr.Results[i].Studies,
			err:      mr.Results[i].Err,
		}
	}
	o.logger.Debug().Bool("history", mr.History).Int("queries", len(queries)).Msg("batched search finished")
	return results, nil
}

// merge concatenates strategy results in the given (priority) order and
// drops repeated IDs. The first-seen record is kept intact apart from
// FoundBy, which accumulates every strategy that returned the study.
func merge(results []strategyResult) ([]types.Study, int) {
	seen := make(map[string]int)
	var merged []types.Study
	removed := 0

	for _, r := range results {
		for _, s := range r.studies {
			if s.ID == "" {
				continue
			}
			if idx, ok := seen[s.ID]; ok {
				merged[idx].FoundBy = appendUnique(merged[idx].FoundBy, string(r.strategy))
				removed++
				continue
			}
			s.FoundBy = []string{string(r.strategy)}
			seen[s.ID] = len(merged)
			merged = append(merged, s)
		}
	}
	return merged, removed
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
