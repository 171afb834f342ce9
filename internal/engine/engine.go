// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs the full evidence pipeline for one request:
// validate, consult the result cache, search, score, classify and rank.
//
//	eng, err := engine.New(cfg, engine.Deps{Logger: logging.Component("engine")})
//	out, err := eng.Rank(ctx, types.RankRequest{Term: "magnesium", BenefitTerm: "sleep"})
//	defer eng.Close()
//
// Rank returns an error only for invalid input, a failure of every search
// strategy, or the caller's context ending before a result exists. Finding
// no studies is an Outcome with status insufficient_evidence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/evidence-engine/internal/cache"
	"github.com/pdiddy/evidence-engine/internal/literature"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/rank"
	"github.com/pdiddy/evidence-engine/internal/score"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/internal/sentiment"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultSearchShare  = 0.6
	defaultWriteTimeout = 5 * time.Second
	defaultCacheTTL     = 7 * 24 * time.Hour

	// maxRankReserve caps the time held back from classification so that
	// ranking finishes inside the request deadline.
	maxRankReserve = 250 * time.Millisecond
)

// Deps overrides the collaborators New would otherwise build from the
// configuration. Zero fields are built from cfg.
type Deps struct {
	Literature search.Literature
	Backend    sentiment.Backend
	Cache      cache.Store
	Logger     zerolog.Logger

	// Now supplies the reference year for scoring and strategy windows.
	Now func() time.Time
}

// Engine is safe for concurrent use. One Engine shares one literature
// client, so all requests draw from the same upstream rate budget.
type Engine struct {
	cfg        types.EngineConfig
	search     *search.Orchestrator
	classifier *sentiment.Classifier
	cache      cache.Store
	now        func() time.Time
	logger     zerolog.Logger

	flight singleflight.Group
	writes sync.WaitGroup
}

// New wires an Engine from cfg and deps.
func New(cfg types.EngineConfig, deps Deps) (*Engine, error) {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.SearchShare <= 0 || cfg.SearchShare >= 1 {
		cfg.SearchShare = defaultSearchShare
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = defaultCacheTTL
	}
	if cfg.Cache.WriteTimeout <= 0 {
		cfg.Cache.WriteTimeout = defaultWriteTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger.With().Str("component", "engine").Logger()

	lit := deps.Literature
	if lit == nil {
		lit = literature.New(cfg.Literature, nil, deps.Logger)
	}

	backend := deps.Backend
	if backend == nil {
		b, err := sentiment.NewBackend(cfg.Classifier, nil)
		switch {
		case errors.Is(err, sentiment.ErrNotConfigured):
			logger.Warn().Msg("no classifier API key; every study will be neutral")
		case err != nil:
			return nil, fmt.Errorf("creating classifier backend: %w", err)
		default:
			backend = b
		}
	}

	store := deps.Cache
	if store == nil {
		s, err := cache.Open(cfg.Cache, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("opening result cache: %w", err)
		}
		store = s
	}

	return &Engine{
		cfg:        cfg,
		search:     search.New(lit, deps.Logger),
		classifier: sentiment.NewClassifier(backend, cfg.Classifier, deps.Logger),
		cache:      store,
		now:        deps.Now,
		logger:     logger,
	}, nil
}

type requestIDKey struct{}

// WithRequestID attaches a request ID that Rank uses in its log lines in
// place of a generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Rank answers one request. Concurrent requests with the same cache key
// share a single pipeline run; each waiting caller still returns when its
// own context ends.
func (e *Engine) Rank(ctx context.Context, req types.RankRequest) (types.Outcome, error) {
	if err := validateRequest(req); err != nil {
		return types.Outcome{}, err
	}
	start := time.Now()
	reqID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || reqID == "" {
		reqID = uuid.NewString()
	}
	logger := e.logger.With().Str("request_id", reqID).Str("term", req.Term).Logger()

	if _, ok := ctx.Deadline(); !ok {
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = e.cfg.DefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := cache.Key(req)
	if !req.SkipCache {
		if r, ok := e.lookup(ctx, key, logger); ok {
			out := types.Ranked(r)
			out.Cached = true
			observe(start, out, nil)
			return out, nil
		}
	}

	var (
		out types.Outcome
		err error
	)
	if req.SkipCache {
		out, err = e.run(ctx, req, key, logger)
	} else {
		ch := e.flight.DoChan(key, func() (any, error) {
			return e.run(ctx, req, key, logger)
		})
		select {
		case res := <-ch:
			if res.Shared {
				logger.Debug().Msg("joined in-flight request")
			}
			out, _ = res.Val.(types.Outcome)
			err = res.Err
		case <-ctx.Done():
			select {
			case res := <-ch:
				out, _ = res.Val.(types.Outcome)
				err = res.Err
			default:
				err = ctx.Err()
			}
		}
	}
	observe(start, out, err)
	return out, err
}

// Search runs the strategies and scores the merged studies without
// classifying or ranking them.
func (e *Engine) Search(ctx context.Context, req types.RankRequest) ([]types.ScoredStudy, search.Output, error) {
	if err := validateRequest(req); err != nil {
		return nil, search.Output{}, err
	}
	out, err := e.search.Run(ctx, e.searchRequest(req))
	if err != nil {
		return nil, out, err
	}
	scorer := score.Scorer{ReferenceYear: e.now().Year()}
	scored := scorer.ScoreAll(out.Studies)
	rank.SortScored(scored)
	return scored, out, nil
}

// Evict removes the cached result for req.
func (e *Engine) Evict(ctx context.Context, req types.RankRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	return e.cache.Delete(ctx, cache.Key(req))
}

// Close waits for pending cache writes and closes the cache.
func (e *Engine) Close() error {
	e.writes.Wait()
	return e.cache.Close()
}

func (e *Engine) searchRequest(req types.RankRequest) search.Request {
	return search.Request{
		Term:          req.Term,
		Benefit:       req.BenefitTerm,
		Filters:       req.Filters,
		Strategies:    e.cfg.Strategies,
		MaxResults:    req.MaxResults,
		ReferenceYear: e.now().Year(),
	}
}

func (e *Engine) lookup(ctx context.Context, key string, logger zerolog.Logger) (*types.RankedResult, bool) {
	r, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("result cache lookup failed")
		return nil, false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		logger.Debug().Msg("result cache hit")
		return r, true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
}

// run is one uncached pipeline pass. Search gets SearchShare of the
// remaining deadline; classification gets the rest and degrades to
// neutral results when it runs out. Only fully classified results are
// cached.
func (e *Engine) run(ctx context.Context, req types.RankRequest, key string, logger zerolog.Logger) (types.Outcome, error) {
	searchCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		budget := time.Duration(float64(time.Until(deadline)) * e.cfg.SearchShare)
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	found, err := e.search.Run(searchCtx, e.searchRequest(req))
	if err != nil {
		return types.Outcome{}, err
	}

	term := strings.TrimSpace(req.Term)
	benefit := strings.TrimSpace(req.BenefitTerm)
	if len(found.Studies) == 0 {
		logger.Info().Strs("strategy_errors", found.StrategyErrors).Msg("no studies found")
		return types.NoEvidence(&types.InsufficientEvidence{
			Term:           term,
			BenefitTerm:    benefit,
			StrategiesRun:  found.StrategiesRun,
			StrategyErrors: found.StrategyErrors,
		}), nil
	}

	scorer := score.Scorer{ReferenceYear: e.now().Year()}
	scored := scorer.ScoreAll(found.Studies)
	classifyCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		reserve := min(time.Until(deadline)/10, maxRankReserve)
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithDeadline(ctx, deadline.Add(-reserve))
		defer cancel()
	}
	sentiments, stats := e.classifier.ClassifyAll(classifyCtx, scored, term, benefit)

	evaluated := make([]types.EvaluatedStudy, len(scored))
	for i := range scored {
		evaluated[i] = types.EvaluatedStudy{ScoredStudy: scored[i], Sentiment: sentiments[i]}
	}

	result := rank.Rank(evaluated, e.cfg.Rank)
	result.Term = term
	result.BenefitTerm = benefit
	result.StrategyErrors = found.StrategyErrors
	result.GeneratedAt = e.now().UTC()

	logger.Info().
		Int("studies", result.Metadata.TotalStudies).
		Str("consensus", string(result.Metadata.Consensus)).
		Int("confidence", result.Metadata.ConfidenceScore).
		Msg("ranked")

	switch {
	case req.SkipCache:
	case !stats.Complete():
		logger.Info().
			Int("failed", stats.Failed).
			Int("skipped", stats.Skipped).
			Msg("result not cached, classification incomplete")
	default:
		e.store(key, &result, logger)
	}
	return types.Ranked(&result), nil
}

// store writes a result in the background. A failed write is logged and
// never affects the response.
func (e *Engine) store(key string, r *types.RankedResult, logger zerolog.Logger) {
	e.writes.Add(1)
	go func() {
		defer e.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Cache.WriteTimeout)
		defer cancel()
		if err := e.cache.Set(ctx, key, r, e.cfg.Cache.TTL); err != nil {
			metrics.CacheWriteErrors.Inc()
			logger.Warn().Err(err).Msg("result cache write failed")
		}
	}()
}

func observe(start time.Time, out types.Outcome, err error) {
	status := string(out.Status)
	switch {
	case err != nil:
		status = "error"
	case out.Cached:
		status = "cached"
	}
	metrics.PipelineDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
