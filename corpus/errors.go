package corpus

import "errors"

var (
	// ErrNameRequired is returned when a store is created without a corpus name.
	ErrNameRequired = errors.New("corpus name is required")

	// ErrInvalidDimension is returned when the configured dimension is not positive.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the store's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch is returned when Add receives a different number of
	// chunks and vectors.
	ErrLengthMismatch = errors.New("chunk and vector counts differ")

	// ErrDuplicateContent is returned when Add would insert chunks whose
	// fingerprint is already present in the store.
	ErrDuplicateContent = errors.New("content already ingested")

	// ErrEmbedderRequired is returned when Reembed is called without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
