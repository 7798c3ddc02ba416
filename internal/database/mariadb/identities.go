package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

// IdentityRepository provides MariaDB-backed identity storage.
// Embeddings are stored as little-endian float32 blobs.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new MariaDB identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func (r *IdentityRepository) Get(ctx context.Context, key int) (*database.StoredIdentity, error) {
	var s database.StoredIdentity
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT identity_key, name, created_at, updated_at FROM identities WHERE identity_key = ?", key,
	).Scan(&s.Key, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &s, nil
}

func (r *IdentityRepository) GetImage(ctx context.Context, key int) ([]byte, error) {
	var image []byte
	err := r.pool.db.QueryRowContext(ctx, "SELECT image FROM identities WHERE identity_key = ?", key).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity image: %w", err)
	}
	return image, nil
}

func (r *IdentityRepository) ListUnnamed(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT identity_key, name, created_at, updated_at FROM identities WHERE name = '' ORDER BY identity_key")
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

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

func (r *IdentityRepository) Put(ctx context.Context, s database.StoredIdentity) error {
	query := `
		INSERT INTO identities (identity_key, name, image, embedding)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			image = VALUES(image),
			embedding = COALESCE(VALUES(embedding), embedding),
			updated_at = CURRENT_TIMESTAMP(6)
	`
	if _, err := r.pool.db.ExecContext(ctx, query, s.Key, s.Name, s.Image, encodeEmbedding(s.Embedding)); err != nil {
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) UpdateName(ctx context.Context, key int, name string) (bool, error) {
	// CLIENT_FOUND_ROWS is not set, so an unchanged name reports zero affected rows;
	// existence is checked separately.
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE identities SET name = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE identity_key = ?", name, key)
	if err != nil {
		return false, fmt.Errorf("update identity name: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}
	existing, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

func (r *IdentityRepository) ListEmbeddings(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT identity_key, embedding FROM identities WHERE embedding IS NOT NULL ORDER BY identity_key")
	if err != nil {
		return nil, fmt.Errorf("query identity embeddings: %w", err)
	}
	defer rows.Close()

	var out []database.StoredIdentity
	for rows.Next() {
		var s database.StoredIdentity
		var blob []byte
		if err := rows.Scan(&s.Key, &blob); err != nil {
			return nil, fmt.Errorf("scan identity embedding: %w", err)
		}
		if s.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("identity %d: %w", s.Key, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity embeddings: %w", err)
	}
	return out, nil
}

func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}
