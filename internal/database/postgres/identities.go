package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Get retrieves a record by key without its image and embedding, nil if not found.
func (r *IdentityRepository) Get(ctx context.Context, key int) (*database.StoredIdentity, error) {
	query := `
		SELECT identity_key, name, created_at, updated_at
		FROM identities
		WHERE identity_key = $1
	`

	var s database.StoredIdentity
	err := r.pool.QueryRow(ctx, query, key).Scan(&s.Key, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &s, nil
}

// GetImage returns the image blob, nil if the record or image is missing.
func (r *IdentityRepository) GetImage(ctx context.Context, key int) ([]byte, error) {
	var image []byte
	err := r.pool.QueryRow(ctx, "SELECT image FROM identities WHERE identity_key = $1", key).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity image: %w", err)
	}
	return image, nil
}

// ListUnnamed returns records with an empty name ordered by key.
func (r *IdentityRepository) ListUnnamed(ctx context.Context) ([]database.StoredIdentity, error) {
	query := `
		SELECT identity_key, name, created_at, updated_at
		FROM identities
		WHERE name = ''
		ORDER BY identity_key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query unnamed identities: %w", err)
	}
	defer rows.Close()

	var out []database.StoredIdentity
	for rows.Next() {
		var s database.StoredIdentity
		if err := rows.Scan(&s.Key, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// Count returns the total number of records.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// Put inserts or replaces the record for s.Key. created_at survives replacement.
func (r *IdentityRepository) Put(ctx context.Context, s database.StoredIdentity) error {
	query := `
		INSERT INTO identities (identity_key, name, image, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (identity_key) DO UPDATE SET
			name = EXCLUDED.name,
			image = EXCLUDED.image,
			embedding = COALESCE(EXCLUDED.embedding, identities.embedding),
			updated_at = NOW()
	`

	var embedding any
	if len(s.Embedding) > 0 {
		embedding = pgvector.NewVector(s.Embedding)
	}

	if _, err := r.pool.Exec(ctx, query, s.Key, s.Name, s.Image, embedding); err != nil {
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

// UpdateName sets the name of an existing record.
func (r *IdentityRepository) UpdateName(ctx context.Context, key int, name string) (bool, error) {
	result, err := r.pool.Exec(ctx,
		"UPDATE identities SET name = $2, updated_at = NOW() WHERE identity_key = $1", key, name)
	if err != nil {
		return false, fmt.Errorf("update identity name: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update identity name: %w", err)
	}
	return n > 0, nil
}

// ListEmbeddings returns key and embedding of every record that has one.
func (r *IdentityRepository) ListEmbeddings(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT identity_key, embedding FROM identities WHERE embedding IS NOT NULL ORDER BY identity_key")
	if err != nil {
		return nil, fmt.Errorf("query identity embeddings: %w", err)
	}
	defer rows.Close()

	var out []database.StoredIdentity
	for rows.Next() {
		var s database.StoredIdentity
		var vec pgvector.Vector
		if err := rows.Scan(&s.Key, &vec); err != nil {
			return nil, fmt.Errorf("scan identity embedding: %w", err)
		}
		s.Embedding = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity embeddings: %w", err)
	}
	return out, nil
}

// Close closes the underlying pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}
