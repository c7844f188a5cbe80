package verify

import "errors"

var (
	// ErrArticleRepositoryRequired is returned when a cascade is created without an article repository.
	ErrArticleRepositoryRequired = errors.New("article repository is required")

	// ErrHistoryRepositoryRequired is returned when a cascade is created without a history repository.
	ErrHistoryRepositoryRequired = errors.New("history repository is required")

	// ErrCorpusRequired is returned when a cascade is created without a corpus store.
	ErrCorpusRequired = errors.New("corpus store is required")

	// ErrProviderRequired is returned when a cascade is created without an AI provider.
	ErrProviderRequired = errors.New("ai provider is required")

	// ErrTrackerRequired is returned when a cascade is created without a session tracker.
	ErrTrackerRequired = errors.New("session tracker is required")

	// ErrCacheRequired is returned when a cascade is created without a response cache.
	ErrCacheRequired = errors.New("response cache is required")
)
