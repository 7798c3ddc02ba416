package resolver

import (
	"context"
	"fmt"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

// Stats summarises the index and the store.
type Stats struct {
	IndexLen   int                 `json:"index_len"`
	StoreCount int                 `json:"store_count"`
	Divergence int                 `json:"divergence"` // StoreCount - IndexLen
	Index      database.IndexStats `json:"index"`
}

// Stats reports sizes of the index and the store.
func (r *Resolver) Stats(ctx context.Context) (*Stats, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting identities: %w", err)
	}
	idx := r.index.Stats()
	return &Stats{
		IndexLen:   idx.Len,
		StoreCount: count,
		Divergence: count - idx.Len,
		Index:      idx,
	}, nil
}

// VerifyReport lists disagreements between the index and the store.
type VerifyReport struct {
	IndexLen int `json:"index_len"`
	// MissingRecords are indexed keys without a record.
	MissingRecords []int `json:"missing_records"`
	// MissingEmbeddings are records without an embedding copy; they block a rebuild.
	MissingEmbeddings []int `json:"missing_embeddings"`
	// EmbeddingMismatch are records whose embedding copy differs from the indexed vector.
	EmbeddingMismatch []int `json:"embedding_mismatch"`
	// OrphanRecords are records past the end of the index.
	OrphanRecords []int `json:"orphan_records"`
}

// Consistent reports whether every indexed key has a matching record.
func (v *VerifyReport) Consistent() bool {
	return len(v.MissingRecords) == 0 && len(v.EmbeddingMismatch) == 0
}

// mismatchTolerance absorbs float rounding between the stored copy and the index.
const mismatchTolerance = 1e-4

// Verify compares every indexed key with the store.
func (r *Resolver) Verify(ctx context.Context) (*VerifyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.store.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	copies := make(map[int][]float32, len(rows))
	for _, row := range rows {
		copies[row.Key] = row.Embedding
	}

	n := r.index.Len()
	report := &VerifyReport{IndexLen: n}
	for key := range n {
		stored, ok := copies[key]
		if !ok {
			rec, err := r.store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("loading identity %d: %w", key, err)
			}
			if rec == nil {
				report.MissingRecords = append(report.MissingRecords, key)
			} else {
				report.MissingEmbeddings = append(report.MissingEmbeddings, key)
			}
			continue
		}
		indexed, _ := r.index.Vector(key)
		if len(stored) != len(indexed) || database.Dot(stored, indexed) < 1-mismatchTolerance {
			report.EmbeddingMismatch = append(report.EmbeddingMismatch, key)
		}
	}
	for _, row := range rows {
		if row.Key >= n {
			report.OrphanRecords = append(report.OrphanRecords, row.Key)
		}
	}
	return report, nil
}

// Rebuild replaces the index content with the embedding copies held by the store
// for keys 0..count-1. A count of zero keeps the current index length. Records at or
// beyond count are left out, since a failed insert can leave a record with an
// embedding copy for a key that was never acknowledged.
func (r *Resolver) Rebuild(ctx context.Context, count int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.index.Len()
	switch {
	case count < 0:
		return 0, fmt.Errorf("invalid rebuild count %d", count)
	case count > 0 && count < n:
		return 0, fmt.Errorf("%w: rebuild count %d is below the index length %d", ErrConsistency, count, n)
	case count > 0:
		n = count
	}

	rows, err := r.store.ListEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing embeddings: %w", err)
	}
	if n == 0 && len(rows) > 0 {
		return 0, fmt.Errorf("index is empty and the store holds %d embeddings, pass the number of identities to restore", len(rows))
	}

	vectors := make([][]float32, 0, n)
	for i, row := range rows {
		if i == n {
			break
		}
		if row.Key != i {
			return 0, fmt.Errorf("%w: no embedding copy for key %d", ErrConsistency, i)
		}
		vectors = append(vectors, row.Embedding)
	}
	if len(vectors) < n {
		return 0, fmt.Errorf("%w: store has %d embeddings, %d needed",
			ErrConsistency, len(vectors), n)
	}
	if skipped := len(rows) - n; skipped > 0 {
		r.logger.Warn("leaving unacknowledged records out of the rebuild", "records", skipped, "from_key", n)
	}

	if err := r.index.Replace(vectors); err != nil {
		return 0, fmt.Errorf("replacing index: %w", err)
	}
	r.logger.Info("rebuilt index from store", "vectors", len(vectors))
	return len(vectors), nil
}
