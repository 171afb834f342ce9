// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores ranked results keyed by normalized request. The
// cache is an optimization: the engine behaves the same, only slower, with
// the none backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// keyVersion changes whenever the cached value shape or the key fields change.
const keyVersion = "v1"

// Store is a TTL key-value store of ranked results.
type Store interface {
	// Get returns the cached result for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*types.RankedResult, bool, error)

	// Set stores val under key for ttl.
	Set(ctx context.Context, key string, val *types.RankedResult, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// keyFields are the request fields that change the ranked result.
type keyFields struct {
	Term       string            `json:"term"`
	Benefit    string            `json:"benefit"`
	MaxResults int               `json:"max_results"`
	YearFrom   int               `json:"year_from"`
	YearTo     int               `json:"year_to"`
	HumanOnly  bool              `json:"human_only"`
	StudyTypes []types.StudyType `json:"study_types"`
}

// Key derives the cache key of a request. Term and benefit are normalized
// the way the query builder normalizes them, so "Magnesium " and
// "magnesium" share an entry. Timeout and SkipCache do not affect the key.
func Key(req types.RankRequest) string {
	kf := keyFields{
		Term:       query.Normalize(req.Term),
		Benefit:    query.Normalize(req.BenefitTerm),
		MaxResults: req.MaxResults,
		YearFrom:   req.Filters.YearFrom,
		YearTo:     req.Filters.YearTo,
		HumanOnly:  req.Filters.HumanOnly,
		StudyTypes: slices.Clone(req.Filters.StudyTypes),
	}
	slices.Sort(kf.StudyTypes)
	kf.StudyTypes = slices.Compact(kf.StudyTypes)

	b, _ := json.Marshal(kf)
	sum := sha256.Sum256(b)
	return "evidence:" + keyVersion + ":" + hex.EncodeToString(sum[:])
}

// Open creates the store selected by cfg.Backend.
func Open(cfg types.CacheConfig, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "cache").Str("backend", string(cfg.Backend)).Logger()

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case types.CacheNone:
		s = None{}
	case "", types.CacheMemory:
		s = NewMemory()
	case types.CacheSQLite:
		s, err = OpenSQLite(cfg.Path)
	case types.CacheBadger:
		s, err = OpenBadger(cfg.Path)
	case types.CacheRedis:
		s, err = OpenRedis(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (valid: none, memory, sqlite, badger, redis)", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", cfg.Path).Msg("result cache opened")
	return s, nil
}

func encode(val *types.RankedResult) ([]byte, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("encoding cached result: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*types.RankedResult, error) {
	var r types.RankedResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decoding cached result: %w", err)
	}
	return &r, nil
}

// None is a Store that never holds anything.
type None struct{}

func (None) Get(context.Context, string) (*types.RankedResult, bool, error) { return nil, false, nil }

func (None) Set(context.Context, string, *types.RankedResult, time.Duration) error { return nil }

func (None) Delete(context.Context, string) error { return nil }

func (None) Close() error { return nil }
