package database

import (
	"context"
)

// IdentityReader provides read-only access to identity records
type IdentityReader interface {
	// Get retrieves a record by key, returns nil if not found
	Get(ctx context.Context, key int) (*StoredIdentity, error)
	// GetImage returns the stored image blob, nil if not found
	GetImage(ctx context.Context, key int) ([]byte, error)
	// ListUnnamed returns records without a name, ordered by key, without images
	ListUnnamed(ctx context.Context) ([]StoredIdentity, error)
	// Count returns the total number of records
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to identity records.
// Every method returns only after the change is committed.
type IdentityWriter interface {
	IdentityReader

	// Put inserts or replaces the record for s.Key. A nil Embedding keeps the stored copy.
	Put(ctx context.Context, s StoredIdentity) error
	// UpdateName sets the name of an existing record, reports false if the key is unknown
	UpdateName(ctx context.Context, key int, name string) (bool, error)
}

// EmbeddingSource lists the embedding copies kept next to the records.
type EmbeddingSource interface {
	// ListEmbeddings returns key and embedding of every record that has one, ordered by key
	ListEmbeddings(ctx context.Context) ([]StoredIdentity, error)
}

// IdentityStore is what a storage backend provides.
type IdentityStore interface {
	IdentityWriter
	EmbeddingSource
	Close() error
}
