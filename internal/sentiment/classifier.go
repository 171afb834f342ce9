// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sentiment labels each study as positive, negative or neutral
// toward a supplement's claimed effect using a language-classification
// service. Classification fails open: any study that cannot be classified
// gets a neutral, zero-confidence result and stays in the population.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultWorkers        = 6
	defaultRequestTimeout = 20 * time.Second
	defaultAbstractChars  = 1500
)

// Reasons recorded on fail-open results.
const (
	ReasonNotConfigured = "classifier not configured"
	ReasonDeadline      = "not classified before deadline"
	ReasonFailed        = "classification failed"
)

// Classifier runs a fixed pool of workers over a study list.
type Classifier struct {
	backend Backend
	cfg     types.ClassifierConfig
	breaker *gobreaker.CircuitBreaker[types.SentimentResult]
	logger  zerolog.Logger
}

// NewClassifier creates a Classifier. A nil backend yields a classifier
// that marks every study unclassified.
func NewClassifier(backend Backend, cfg types.ClassifierConfig, logger zerolog.Logger) *Classifier {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.AbstractChars <= 0 {
		cfg.AbstractChars = defaultAbstractChars
	}
	logger = logger.With().Str("component", "sentiment").Logger()
	return &Classifier{
		backend: backend,
		cfg:     cfg,
		breaker: httputil.NewBreaker[types.SentimentResult](httputil.BreakerConfig{
			Name: "classifier",
			Exclude: func(err error) bool {
				return errors.Is(err, errMalformed)
			},
		}, logger),
		logger: logger,
	}
}

// Classify labels one study. The call is bounded by RequestTimeout
// independently of ctx's own deadline. Errors are *types.ClassificationError.
func (c *Classifier) Classify(ctx context.Context, s types.Study, term, benefit string) (types.SentimentResult, error) {
	if c.backend == nil {
		return types.Unclassified(ReasonNotConfigured), &types.ClassificationError{StudyID: s.ID, Err: ErrNotConfigured}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req := Request{
		StudyID:  s.ID,
		Title:    s.Title,
		Abstract: excerpt(s.Abstract, c.cfg.AbstractChars),
		Term:     term,
		Benefit:  benefit,
	}
	res, err := c.breaker.Execute(func() (types.SentimentResult, error) {
		res, err := c.backend.Classify(callCtx, req)
		return res, httputil.CallTimeout(ctx, err)
	})
	if err != nil {
		return types.Unclassified(ReasonFailed), &types.ClassificationError{StudyID: s.ID, Err: err}
	}
	res.Classified = true
	return res, nil
}

// Stats counts how a ClassifyAll pass went. Skipped studies were never
// sent to the backend.
type Stats struct {
	Classified int
	Failed     int
	Skipped    int
}

// Complete reports whether every study got a real label.
func (s Stats) Complete() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// ClassifyAll classifies every study with at most Workers calls in flight.
// The output has one result per input, in input order. Studies that fail,
// or that are still queued when ctx ends, get a neutral zero-confidence
// result; ClassifyAll itself never fails.
func (c *Classifier) ClassifyAll(ctx context.Context, studies []types.ScoredStudy, term, benefit string) ([]types.SentimentResult, Stats) {
	results := make([]types.SentimentResult, len(studies))
	if len(studies) == 0 {
		return results, Stats{}
	}
	if c.backend == nil {
		for i := range results {
			results[i] = types.Unclassified(ReasonNotConfigured)
		}
		metrics.Classifications.WithLabelValues("skipped").Add(float64(len(studies)))
		c.logger.Warn().Int("studies", len(studies)).Msg("no classifier backend configured, all studies left neutral")
		return results, Stats{Skipped: len(studies)}
	}
	for i := range results {
		results[i] = types.Unclassified(ReasonDeadline)
	}

	start := time.Now()
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var stats Stats

	workers := min(c.cfg.Workers, len(studies))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					mu.Lock()
					stats.Skipped++
					mu.Unlock()
					metrics.Classifications.WithLabelValues("skipped").Inc()
					continue
				}
				res, err := c.Classify(ctx, studies[i].Study, term, benefit)
				if err != nil {
					if ctx.Err() != nil {
						res = types.Unclassified(ReasonDeadline)
					} else {
						res.Rationale = fmt.Sprintf("%s: %v", ReasonFailed, err)
					}
					c.logger.Debug().Err(err).Str("study", studies[i].ID).Msg("classification failed, using neutral")
					metrics.Classifications.WithLabelValues("failed").Inc()
					mu.Lock()
					stats.Failed++
					mu.Unlock()
				} else {
					metrics.Classifications.WithLabelValues("classified").Inc()
					mu.Lock()
					stats.Classified++
					mu.Unlock()
				}
				results[i] = res
			}
		}()
	}

feed:
	for i := range studies {
		select {
		case jobs <- i:
		case <-ctx.Done():
			mu.Lock()
			stats.Skipped += len(studies) - i
			mu.Unlock()
			metrics.Classifications.WithLabelValues("skipped").Add(float64(len(studies) - i))
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	ev := c.logger.Info()
	if !stats.Complete() {
		ev = c.logger.Warn()
	}
	ev.Int("studies", len(studies)).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("classification complete")
	return results, stats
}
