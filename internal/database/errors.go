package database

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrZeroVector is returned for vectors with zero L2 norm, which cannot be normalised.
	ErrZeroVector = errors.New("zero-norm embedding")
	// ErrPersistence is returned when an insert could not be made durable.
	ErrPersistence = errors.New("vector index persistence failure")
	// ErrCorruptIndex is returned at open when on-disk state cannot be trusted.
	ErrCorruptIndex = errors.New("corrupt vector index")
	// ErrIndexLocked is returned when another process holds the index directory.
	ErrIndexLocked = errors.New("vector index is locked by another process")
	// ErrIndexClosed is returned by operations on a closed index.
	ErrIndexClosed = errors.New("vector index is closed")
)
