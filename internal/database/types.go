package database

import (
	"fmt"
	"strconv"
	"time"
)

// StoredIdentity is a row of the identity store, keyed by the vector index ordinal.
type StoredIdentity struct {
	Key       int
	Name      string    // empty for unnamed identities
	Image     []byte    // PNG, may be nil when the row was read without its blob
	Embedding []float32 // normalised copy of the indexed vector, used for rebuilds
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsNamed reports whether a display name has been assigned.
func (s *StoredIdentity) IsNamed() bool {
	return s.Name != ""
}

// SearchResult is a single nearest-neighbour hit.
type SearchResult struct {
	Key   int     `json:"key"`
	Score float64 `json:"score"` // cosine similarity in [-1, 1]
}

// FormatKey encodes an identity key for the store and the API.
func FormatKey(key int) string {
	return strconv.Itoa(key)
}

// ParseKey decodes a key produced by FormatKey. Only canonical non-negative
// decimals are accepted, so "007" and "+7" are rejected.
func ParseKey(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("invalid identity key %q", s)
	}
	return n, nil
}
