// Package cache provides the short-TTL response cache that lets
// repeated questions skip the verification cascade entirely.
package cache

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/nocaplabs/claimcheck/core"
)

const (
	// DefaultTTL is how long a cached verification result stays valid.
	DefaultTTL = time.Hour

	// DefaultCapacity bounds the number of cached results. The LRU entry
	// is evicted when the cache is full, so memory stays bounded even
	// under a flood of distinct questions.
	DefaultCapacity = 1024
)

// ResponseCache caches verification results keyed by the fingerprint of
// the normalized question, so trivially restated questions ("Is X
// true?" vs "is x true?") share an entry. Entries expire after a fixed
// TTL and the cache is capacity-bounded. Safe for concurrent use.
type ResponseCache struct {
	lru    *expirable.LRU[string, core.VerificationResult]
	ttl    time.Duration
	logger *slog.Logger
}

// Option is a functional option for configuring a ResponseCache.
type Option func(*config)

type config struct {
	ttl      time.Duration
	capacity int
	logger   *slog.Logger
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithCapacity sets the maximum number of cached results.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		c.capacity = capacity
	}
}

// WithLogger sets the logger used by the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a ResponseCache with the default TTL and capacity unless
// overridden by options.
func New(opts ...Option) *ResponseCache {
	cfg := &config{
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		logger:   slog.Default().With("component", "response-cache"),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = DefaultTTL
	}
	if cfg.capacity < 1 {
		cfg.capacity = DefaultCapacity
	}

	return &ResponseCache{
		lru:    expirable.NewLRU[string, core.VerificationResult](cfg.capacity, nil, cfg.ttl),
		ttl:    cfg.ttl,
		logger: cfg.logger,
	}
}

// key reduces a question to its cache key: the fingerprint of its
// normalized form.
func key(question string) string {
	return string(core.FingerprintContent(core.NormalizeQuestion(question)))
}

// Get returns the cached result for a question, if present and fresh.
func (c *ResponseCache) Get(question string) (core.VerificationResult, bool) {
	result, ok := c.lru.Get(key(question))
	if ok {
		c.logger.Debug("cache hit", "question_length", len(question))
	}
	return result, ok
}

// Put stores a verification result for a question.
func (c *ResponseCache) Put(question string, result core.VerificationResult) {
	c.lru.Add(key(question), result)
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}

// Purge drops all entries.
func (c *ResponseCache) Purge() {
	c.lru.Purge()
}
