// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package literature is the single point of contact with the PubMed
// E-utilities API. A Client owns the token-bucket rate limiter shared by
// every strategy of a search session, retries transient failures, and maps
// loosely typed upstream responses into types.Study at the boundary.
package literature

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	esearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// maxResponseBytes bounds a single upstream response body.
const maxResponseBytes = 64 << 20

// Client queries PubMed. It is safe for concurrent use; all calls share one
// rate limiter and one circuit breaker.
type Client struct {
	cfg     types.LiteratureConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

// New creates a Client. A zero RequestsPerSecond uses the NCBI limit: 3
// requests per second, or 10 with an API key.
func New(cfg types.LiteratureConfig, client *http.Client, logger zerolog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 3
		if cfg.APIKey != "" {
			cfg.RequestsPerSecond = 10
		}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	if cfg.FetchBatchSize <= 0 {
		cfg.FetchBatchSize = 200
	}
	if cfg.Policy == "" {
		cfg.Policy = types.PolicyWait
	}
	if cfg.Tool == "" {
		cfg.Tool = "evidence-engine"
	}

	logger = logger.With().Str("component", "literature").Logger()
	return &Client{
		cfg:     cfg,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: httputil.NewBreaker[[]byte](httputil.BreakerConfig{
			Name:    "pubmed",
			Exclude: func(err error) bool { return errors.Is(err, types.ErrRateLimited) },
		}, logger),
		logger: logger,
	}
}

// Search runs one esearch query and returns up to maxResults PMIDs in
// relevance order.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	params := c.params()
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", "relevance")

	res, err := c.esearch(ctx, "search", params)
	if err != nil {
		return nil, err
	}
	return res.IDList, nil
}

// Fetch hydrates the given PMIDs in batches of FetchBatchSize. Identifiers
// the upstream cannot resolve are omitted. A failed batch is logged and
// skipped; an error is returned only when every batch fails.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]types.Study, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		studies  []types.Study
		firstErr error
		okCount  int
	)
	for start := 0; start < len(ids); start += c.cfg.FetchBatchSize {
		end := min(start+c.cfg.FetchBatchSize, len(ids))
		batch := ids[start:end]

		form := c.params()
		form.Set("id", strings.Join(batch, ","))
		form.Set("retmode", "xml")
		form.Set("rettype", "abstract")

		got, err := c.efetch(ctx, "fetch", form)
		if err != nil {
			if ctx.Err() != nil {
				return studies, err
			}
			c.logger.Warn().Err(err).Int("batch_start", start).Int("batch_size", len(batch)).Msg("fetch batch failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		okCount++
		studies = append(studies, orderByIDs(got, batch)...)
	}

	if okCount == 0 {
		return nil, firstErr
	}
	return studies, nil
}

// QueryResult is the outcome of one query within a MultiSearch.
type QueryResult struct {
	Query   string
	Studies []types.Study
	Err     error
}

// MultiResult holds per-query results in input order.
type MultiResult struct {
	Results []QueryResult

	// History is true when the history server session served every query.
	History bool
}

// Studies returns the union of all successful queries, deduplicated by ID
// with the first-seen record kept, in query order.
func (m MultiResult) Studies() []types.Study {
	seen := make(map[string]bool)
	var out []types.Study
	for _, r := range m.Results {
		for _, s := range r.Studies {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out
}

// MultiSearch runs several queries through one history-server session:
// every esearch posts its result set to a shared WebEnv, and records are
// fetched by query key without re-sending identifier lists. When the
// session is unavailable, or a history fetch fails, the affected queries
// fall back to independent Search and Fetch calls. Per-query failures are
// reported in the result; the returned error is non-nil only when the
// context ends.
func (c *Client) MultiSearch(ctx context.Context, queries []string, maxResults int) (MultiResult, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	out := MultiResult{Results: make([]QueryResult, len(queries)), History: true}

	type posted struct {
		key   string
		count int
	}
	keys := make([]*posted, len(queries))
	var webEnv string
	sessionOK := true

	for i, q := range queries {
		out.Results[i].Query = q
	}

	for i, q := range queries {
		if !sessionOK {
			break
		}
		params := c.params()
		params.Set("term", q)
		params.Set("usehistory", "y")
		params.Set("retmax", "0")
		params.Set("sort", "relevance")
		if webEnv != "" {
			params.Set("WebEnv", webEnv)
		}

		res, err := c.esearch(ctx, "multi_search", params)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			out.Results[i].Err = err
			continue
		}
		if res.WebEnv == "" || res.QueryKey == "" {
			c.logger.Debug().Msg("history session unavailable, falling back to independent searches")
			sessionOK = false
			break
		}
		webEnv = res.WebEnv
		count, _ := strconv.Atoi(res.Count)
		keys[i] = &posted{key: res.QueryKey, count: count}
	}

	for i, q := range queries {
		if out.Results[i].Err != nil {
			continue
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		if p := keys[i]; p != nil {
			if p.count == 0 {
				continue
			}
			form := c.params()
			form.Set("WebEnv", webEnv)
			form.Set("query_key", p.key)
			form.Set("retstart", "0")
			form.Set("retmax", strconv.Itoa(min(maxResults, p.count)))
			form.Set("retmode", "xml")
			form.Set("rettype", "abstract")

			studies, err := c.efetch(ctx, "multi_fetch", form)
			if err == nil {
				out.Results[i].Studies = studies
				continue
			}
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("query_key", p.key).Msg("history fetch failed, falling back")
		}

		out.History = false
		ids, err := c.Search(ctx, q, maxResults)
		if err != nil {
			out.Results[i].Err = err
			continue
		}
		studies, err := c.Fetch(ctx, ids)
		if err != nil {
			out.Results[i].Err = err
			continue
		}
		out.Results[i].Studies = studies
	}
	return out, nil
}

// params returns the query parameters sent with every request.
func (c *Client) params() url.Values {
	v := url.Values{"db": {"pubmed"}, "tool": {c.cfg.Tool}}
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
	return v
}

type esearchResponse struct {
	Result *esearchResult `json:"esearchresult"`
	Error  string         `json:"error"`
}

type esearchResult struct {
	Count    string   `json:"count"`
	IDList   []string `json:"idlist"`
	WebEnv   string   `json:"webenv"`
	QueryKey string   `json:"querykey"`
	ErrorMsg string   `json:"ERROR"`
}

func (c *Client) esearch(ctx context.Context, op string, params url.Values) (*esearchResult, error) {
	params.Set("retmode", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, esearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	body, err := c.do(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var sr esearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &types.UpstreamError{Op: op, Err: fmt.Errorf("parsing esearch response: %w", err)}
	}
	if sr.Error != "" {
		return nil, &types.UpstreamError{Op: op, Err: errors.New(sr.Error)}
	}
	if sr.Result == nil {
		return nil, &types.UpstreamError{Op: op, Err: errors.New("esearch response has no esearchresult")}
	}
	if sr.Result.ErrorMsg != "" {
		return nil, &types.UpstreamError{Op: op, Err: errors.New(sr.Result.ErrorMsg)}
	}
	return sr.Result, nil
}

func (c *Client) efetch(ctx context.Context, op string, form url.Values) ([]types.Study, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, efetchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	studies, err := parseArticleSet(body)
	if err != nil {
		return nil, &types.UpstreamError{Op: op, Err: err}
	}
	return studies, nil
}

// do sends req through the circuit breaker, rate limiter and retry loop and
// returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries, c.throttle)
		if err != nil {
			return nil, httputil.CallTimeout(ctx, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return nil, &types.UpstreamError{Op: op, Status: resp.StatusCode}
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &types.UpstreamError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
		}
		return b, nil
	})
	metrics.LiteratureLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, types.ErrRateLimited):
		outcome = "rate_limited"
	case httputil.BreakerRejected(err):
		outcome = "breaker_open"
		err = &types.UpstreamError{Op: op, Err: err}
	case ctx.Err() != nil:
		outcome = "cancelled"
		err = ctx.Err()
	default:
		outcome = "error"
		var ue *types.UpstreamError
		if !errors.As(err, &ue) {
			err = &types.UpstreamError{Op: op, Err: err}
		}
	}
	metrics.LiteratureRequests.WithLabelValues(op, outcome).Inc()

	c.logger.Debug().
		Str("op", op).
		Str("outcome", outcome).
		Dur("elapsed", time.Since(start)).
		Msg("literature request")
	return body, err
}

// throttle takes one token from the shared bucket. Under PolicyWait it
// waits for at most MaxWait; under PolicyFail it never waits.
func (c *Client) throttle(ctx context.Context) error {
	if c.cfg.Policy == types.PolicyFail {
		if !c.limiter.Allow() {
			return fmt.Errorf("literature request budget exhausted: %w", types.ErrRateLimited)
		}
		return nil
	}

	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("literature burst exceeded: %w", types.ErrRateLimited)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if c.cfg.MaxWait > 0 && delay > c.cfg.MaxWait {
		r.Cancel()
		return fmt.Errorf("literature request would wait %s (max %s): %w", delay, c.cfg.MaxWait, types.ErrRateLimited)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return fmt.Errorf("literature request would wait past deadline: %w", types.ErrRateLimited)
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
