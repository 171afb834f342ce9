package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RateLimitPolicy selects what the literature client does when its request
// budget is exhausted.
type RateLimitPolicy string

const (
	// PolicyWait blocks until a token is available, up to MaxWait.
	PolicyWait RateLimitPolicy = "wait"
	// PolicyFail returns ErrRateLimited immediately.
	PolicyFail RateLimitPolicy = "fail"
)

// LiteratureConfig holds settings for the PubMed E-utilities client.
type LiteratureConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the optional NCBI API key; it raises the allowed request rate.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email and Tool identify the caller to NCBI.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
	Tool  string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// RequestsPerSecond is the token refill rate. Zero derives it from the
	// NCBI limits: 3 without a key, 10 with one.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the token bucket capacity. Zero matches RequestsPerSecond.
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// Policy is wait or fail.
	Policy RateLimitPolicy `json:"policy" yaml:"policy" mapstructure:"policy"`

	// MaxWait bounds the delay a caller accepts under PolicyWait.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait" mapstructure:"max_wait"`

	// MaxRetries is the number of retries after a failed request (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// FetchBatchSize is the number of identifiers hydrated per fetch request.
	FetchBatchSize int `json:"fetch_batch_size" yaml:"fetch_batch_size" mapstructure:"fetch_batch_size"`
}

// StrategyConfig selects and tunes the search strategies for one call. It is
// passed explicitly so concurrent sessions can run different strategy sets.
type StrategyConfig struct {
	HighQuality bool `json:"high_quality" yaml:"high_quality" mapstructure:"high_quality"`
	Recent      bool `json:"recent" yaml:"recent" mapstructure:"recent"`
	TopTier     bool `json:"top_tier" yaml:"top_tier" mapstructure:"top_tier"`
	Negative    bool `json:"negative" yaml:"negative" mapstructure:"negative"`

	// HighQualityYears is the look-back window of the high-quality strategy.
	HighQualityYears int `json:"high_quality_years" yaml:"high_quality_years" mapstructure:"high_quality_years"`

	// RecentYears is the look-back window of the recent strategy.
	RecentYears int `json:"recent_years" yaml:"recent_years" mapstructure:"recent_years"`

	// PerStrategyMax is the number of identifiers requested per strategy.
	PerStrategyMax int `json:"per_strategy_max" yaml:"per_strategy_max" mapstructure:"per_strategy_max"`

	// MaxResults caps the merged study set (default 200).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Batched routes all strategies through one history-server session.
	Batched bool `json:"batched" yaml:"batched" mapstructure:"batched"`
}

// AIConfig holds shared settings for clients that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-haiku-4-5-20251001").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ClassifierConfig holds settings for the sentiment classifier.
type ClassifierConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is "claude" or "openai".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Workers is the number of concurrent classification calls.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// RequestTimeout bounds one classification call, independent of the
	// pipeline deadline.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// AbstractChars is the maximum abstract excerpt sent per study.
	AbstractChars int `json:"abstract_chars" yaml:"abstract_chars" mapstructure:"abstract_chars"`
}

// RankConfig holds settings for the ranker.
type RankConfig struct {
	// MinConfidence is the sentiment confidence needed to enter a bucket.
	// Zero or negative means 0.5. Fail-open results carry confidence 0 and
	// so are never placed.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence"`

	// TopPositive and TopNegative size the supporting and opposing lists.
	TopPositive int `json:"top_positive" yaml:"top_positive" mapstructure:"top_positive"`
	TopNegative int `json:"top_negative" yaml:"top_negative" mapstructure:"top_negative"`
}

// CacheBackend identifies the result cache implementation.
type CacheBackend string

const (
	CacheNone   CacheBackend = "none"
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
	CacheBadger CacheBackend = "badger"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds settings for the result cache.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// TTL is how long a ranked result stays valid.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Path is the SQLite file or Badger directory.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`

	// WriteTimeout bounds a background cache write.
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// EngineConfig groups all component configurations.
type EngineConfig struct {
	Literature LiteratureConfig `json:"literature" yaml:"literature" mapstructure:"literature"`
	Strategies StrategyConfig   `json:"strategies" yaml:"strategies" mapstructure:"strategies"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier" mapstructure:"classifier"`
	Rank       RankConfig       `json:"rank" yaml:"rank" mapstructure:"rank"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`

	// DefaultTimeout bounds a request whose context has no deadline.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout" mapstructure:"default_timeout"`

	// SearchShare is the fraction of the remaining deadline given to the
	// search and fetch phase; the rest is left for classification.
	SearchShare float64 `json:"search_share" yaml:"search_share" mapstructure:"search_share"`
}

// DefaultEngineConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Literature: LiteratureConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   15 * time.Second,
				UserAgent: "evidence-engine/0.1",
			},
			Tool:           "evidence-engine",
			Policy:         PolicyWait,
			MaxWait:        5 * time.Second,
			MaxRetries:     2,
			FetchBatchSize: 200,
		},
		Strategies: StrategyConfig{
			HighQuality:      true,
			Recent:           true,
			TopTier:          true,
			Negative:         true,
			HighQualityYears: 15,
			RecentYears:      5,
			PerStrategyMax:   100,
			MaxResults:       200,
		},
		Classifier: ClassifierConfig{
			AIConfig: AIConfig{
				Model:      "claude-haiku-4-5-20251001",
				MaxRetries: 1,
			},
			Provider:       "claude",
			Workers:        6,
			RequestTimeout: 20 * time.Second,
			AbstractChars:  1500,
		},
		Rank: RankConfig{
			MinConfidence: 0.5,
			TopPositive:   5,
			TopNegative:   5,
		},
		Cache: CacheConfig{
			Backend:      CacheMemory,
			TTL:          7 * 24 * time.Hour,
			Path:         "cache/evidence.db",
			RedisAddr:    "localhost:6379",
			WriteTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		DefaultTimeout: 60 * time.Second,
		SearchShare:    0.6,
	}
}
