// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

// MockIdentityStore is an in-memory implementation of database.IdentityStore
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[int]*database.StoredIdentity
	puts       int

	// Error injection
	GetError            error
	GetImageError       error
	ListUnnamedError    error
	CountError          error
	PutError            error
	UpdateNameError     error
	ListEmbeddingsError error
}

// NewMockIdentityStore creates a new empty mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[int]*database.StoredIdentity),
	}
}

// AddIdentity adds a record directly, bypassing error injection
func (m *MockIdentityStore) AddIdentity(s database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[s.Key] = cloneIdentity(&s)
}

// PutCount returns how many successful Put calls were made
func (m *MockIdentityStore) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func cloneIdentity(s *database.StoredIdentity) *database.StoredIdentity {
	c := *s
	c.Image = slices.Clone(s.Image)
	c.Embedding = slices.Clone(s.Embedding)
	return &c
}

// Get retrieves a record without its image and embedding
func (m *MockIdentityStore) Get(ctx context.Context, key int) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.identities[key]
	if !ok {
		return nil, nil
	}
	c := *s
	c.Image = nil
	c.Embedding = nil
	return &c, nil
}

// GetImage returns the stored image
func (m *MockIdentityStore) GetImage(ctx context.Context, key int) ([]byte, error) {
	if m.GetImageError != nil {
		return nil, m.GetImageError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.identities[key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(s.Image), nil
}

// ListUnnamed returns unnamed records ordered by key
func (m *MockIdentityStore) ListUnnamed(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListUnnamedError != nil {
		return nil, m.ListUnnamedError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredIdentity
	for _, key := range m.sortedKeys() {
		s := m.identities[key]
		if !s.IsNamed() {
			out = append(out, database.StoredIdentity{Key: s.Key, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt})
		}
	}
	return out, nil
}

// Count returns the number of records
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Put inserts or replaces a record, keeping the previous embedding when s has none
func (m *MockIdentityStore) Put(ctx context.Context, s database.StoredIdentity) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c := cloneIdentity(&s)
	c.CreatedAt, c.UpdatedAt = now, now
	if prev, ok := m.identities[s.Key]; ok {
		c.CreatedAt = prev.CreatedAt
		if len(c.Embedding) == 0 {
			c.Embedding = prev.Embedding
		}
	}
	m.identities[s.Key] = c
	m.puts++
	return nil
}

// UpdateName sets the name of an existing record
func (m *MockIdentityStore) UpdateName(ctx context.Context, key int, name string) (bool, error) {
	if m.UpdateNameError != nil {
		return false, m.UpdateNameError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.identities[key]
	if !ok {
		return false, nil
	}
	s.Name = name
	s.UpdatedAt = time.Now()
	return true, nil
}

// ListEmbeddings returns records that carry an embedding, ordered by key
func (m *MockIdentityStore) ListEmbeddings(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListEmbeddingsError != nil {
		return nil, m.ListEmbeddingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.StoredIdentity
	for _, key := range m.sortedKeys() {
		s := m.identities[key]
		if len(s.Embedding) > 0 {
			out = append(out, database.StoredIdentity{Key: key, Embedding: slices.Clone(s.Embedding)})
		}
	}
	return out, nil
}

// Close is a no-op
func (m *MockIdentityStore) Close() error {
	return nil
}

func (m *MockIdentityStore) sortedKeys() []int {
	keys := make([]int, 0, len(m.identities))
	for k := range m.identities {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Verify interface compliance
var _ database.IdentityStore = (*MockIdentityStore)(nil)
