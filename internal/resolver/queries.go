package resolver

import (
	"context"
	"fmt"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

// ParseKey converts an API key into an index ordinal.
func ParseKey(s string) (int, error) {
	key, err := database.ParseKey(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// checkKey reports ErrNotFound for keys the index has not assigned.
func (r *Resolver) checkKey(key int) error {
	if key < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	if key >= r.index.Len() {
		return fmt.Errorf("%w: %d", ErrNotFound, key)
	}
	return nil
}

// GetUnnamed lists identities without a name, ordered by key.
func (r *Resolver) GetUnnamed(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.store.ListUnnamed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unnamed identities: %w", err)
	}
	n := r.index.Len()
	out := rows[:0]
	for _, row := range rows {
		// rows at or past the index length are leftovers of a failed insert
		if row.Key < n {
			out = append(out, row)
		}
	}
	return out, nil
}

// GetByKey returns the record for key, without its image.
func (r *Resolver) GetByKey(ctx context.Context, key int) (*database.StoredIdentity, error) {
	if err := r.checkKey(key); err != nil {
		return nil, err
	}
	return r.record(ctx, key)
}

// UpdateName renames an identity.
func (r *Resolver) UpdateName(ctx context.Context, key int, name string) (string, error) {
	name, err := validName(name)
	if err != nil {
		return "", err
	}
	if err := r.checkKey(key); err != nil {
		return "", err
	}

	ok, err := r.store.UpdateName(ctx, key, name)
	if err != nil {
		return "", fmt.Errorf("renaming identity %d: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: key %d is indexed but has no record", ErrConsistency, key)
	}
	r.logger.Info("renamed identity", "key", key, "name", name)
	return name, nil
}

// GetImage returns the stored PNG for key.
func (r *Resolver) GetImage(ctx context.Context, key int) ([]byte, error) {
	if err := r.checkKey(key); err != nil {
		return nil, err
	}
	img, err := r.store.GetImage(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading image %d: %w", key, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image for key %d", ErrNotFound, key)
	}
	return img, nil
}
