// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for two faces
	// to be treated as the same identity
	DefaultSimilarityThreshold = 0.3

	// DefaultEmbeddingDim is the length of the face embeddings served by the sidecar
	DefaultEmbeddingDim = 512
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel file readers for bulk registration
	WorkerPoolSize = 8

	// DefaultEmbeddingURL is where the embedding sidecar listens by default
	DefaultEmbeddingURL = "http://localhost:8000"
)
