package cache

import "errors"

var (
	// ErrEmbedding is returned when the embedding provider fails or returns a
	// vector that cannot be normalized.
	ErrEmbedding = errors.New("cache: embedding failed")

	// ErrStoreWrite is returned when a record could not be persisted. The
	// in-memory index is left untouched.
	ErrStoreWrite = errors.New("cache: store write failed")

	// ErrStoreRead is returned when reading from the record store fails.
	ErrStoreRead = errors.New("cache: store read failed")

	// ErrConsistency means the index maps a position to a record the store no
	// longer holds. Rebuild is the recovery path.
	ErrConsistency = errors.New("cache: index and store out of sync")

	// ErrInvalidThreshold is returned for thresholds outside [0, 1].
	ErrInvalidThreshold = errors.New("cache: threshold must be within [0, 1]")

	// ErrDimensionMismatch is returned when an embedding does not have the
	// dimensionality the index was built with.
	ErrDimensionMismatch = errors.New("cache: embedding dimension mismatch")
)
