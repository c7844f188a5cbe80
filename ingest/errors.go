package ingest

import "errors"

var (
	// ErrEmbedderRequired is returned when an ingestor is created without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrIngestorRequired is returned when a pipeline is created without an ingestor.
	ErrIngestorRequired = errors.New("ingestor is required")

	// ErrStoreRequired is returned when ingestion is attempted without a corpus store.
	ErrStoreRequired = errors.New("corpus store is required")

	// ErrInvalidSplit is returned for splitter configurations where the
	// overlap does not leave room for new content in each chunk.
	ErrInvalidSplit = errors.New("overlap must be smaller than chunk size")
)
