package storage

import (
	"context"
	"time"

	"github.com/nocaplabs/claimcheck/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// ArticleRepository provides operations for the structured article store:
// labeled claims and articles used as ground truth by the verifier.
type ArticleRepository interface {
	Repository

	// AddArticles adds one or more articles to storage.
	// Articles with ID=0 get a content-based ID; re-adding an article with
	// an existing ID overwrites it. Sets InsertedAt if not already set.
	// Returns the articles with IDs and timestamps populated.
	AddArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)

	// GetArticle retrieves a single article by ID.
	// Returns ErrNotFound if the article doesn't exist.
	GetArticle(ctx context.Context, id core.ID) (*core.Article, error)

	// SearchArticles finds articles matching the query text, best first.
	// Full-text matching is used when available with a substring scan as
	// fallback, so the search degrades rather than fails.
	SearchArticles(ctx context.Context, query string, limit int) ([]*core.Article, error)

	// CountArticles returns the number of stored articles.
	CountArticles(ctx context.Context) (int, error)
}

// TrendingTopic is one entry of the trending aggregation: a recurring
// question with a non-credible verdict.
type TrendingTopic struct {
	Question string       `json:"question"`
	Verdict  core.Verdict `json:"verdict"`
	Count    int          `json:"count"`
	LastSeen time.Time    `json:"last_seen"`
}

// HistoryRepository provides operations for the verification history
// log. Adding a record also upserts the owning session's activity.
type HistoryRepository interface {
	Repository

	// AddRecord appends a completed verification to the log.
	// Generates a sequence ID and sets InsertedAt. Returns the record
	// with ID and timestamp populated.
	AddRecord(ctx context.Context, record *core.HistoryRecord) (*core.HistoryRecord, error)

	// RecentRecords retrieves the N most recent records, newest first.
	RecentRecords(ctx context.Context, limit int) ([]*core.HistoryRecord, error)

	// RecordsBySession retrieves a session's records, newest first.
	RecordsBySession(ctx context.Context, sessionID string, limit int) ([]*core.HistoryRecord, error)

	// RecordsByDateRange retrieves records where start <= Timestamp < end,
	// ordered by timestamp ascending.
	RecordsByDateRange(ctx context.Context, start, end time.Time) ([]*core.HistoryRecord, error)

	// Trending aggregates recent records into recurring non-credible
	// topics, most recurrent first.
	Trending(ctx context.Context, limit int) ([]TrendingTopic, error)

	// Sessions lists the session activity summaries, most recently
	// active first.
	Sessions(ctx context.Context) ([]*core.SessionActivity, error)
}
