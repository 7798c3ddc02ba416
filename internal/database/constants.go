package database

// On-disk layout of a vector index directory
const (
	SnapshotFile = "index.snap"
	WALFile      = "index.wal"
	MetaFile     = "index.meta"
	LockFile     = "index.lock"
)

// DefaultCompactEvery is the number of inserts between snapshot rewrites.
// A value of 1 rewrites the whole snapshot on every insert.
const DefaultCompactEvery = 1000

// HNSW index parameters for 512-dim face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after threshold filtering.
	HNSWSearchMultiplier = 3
)
