// Package resolver turns face images into stable identity keys. It combines the
// quality gate, the embedding engine, the vector index and the identity store.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/embedding"
	"github.com/Rohith2006/Facial-Recognition/internal/imaging"
	"github.com/Rohith2006/Facial-Recognition/internal/quality"
)

var (
	// ErrNotFound is returned for keys that were never assigned.
	ErrNotFound = errors.New("identity not found")
	// ErrConsistency is returned when the index holds a key the store does not know.
	ErrConsistency = errors.New("consistency fault")
	// ErrInvalidKey is returned for keys that cannot name an identity.
	ErrInvalidKey = errors.New("invalid identity key")
	// ErrInvalidName is returned for names that are empty after normalisation.
	ErrInvalidName = errors.New("invalid name")
)

// FaceEmbedder finds faces and computes their embeddings.
type FaceEmbedder interface {
	DetectLargestFace(ctx context.Context, image []byte) (*quality.Face, error)
	Extract(ctx context.Context, image []byte) ([]float32, error)
}

// Index is the subset of the vector index the resolver works with.
type Index interface {
	Insert(embedding []float32) (int, error)
	Search(query []float32, topK int, threshold float64) ([]database.SearchResult, error)
	Len() int
	Dim() int
	Vector(key int) ([]float32, bool)
	Stats() database.IndexStats
	Replace(vectors [][]float32) error
}

// Options configures matching behaviour.
type Options struct {
	SimilarityThreshold float64 // minimum cosine similarity for a match
	CreateOnNoMatch     bool    // Identify mints an unnamed identity on a miss
	MaxImageSide        int     // uploads are scaled down to this size, 0 keeps them
	Logger              *slog.Logger
}

// OutcomeType classifies the result of Identify.
type OutcomeType string

const (
	OutcomeMatched    OutcomeType = "matched"
	OutcomeRegistered OutcomeType = "registered"
	OutcomeRejected   OutcomeType = "rejected"
	OutcomeUnknown    OutcomeType = "unknown"
)

// IdentifyOutcome is the result of Identify. Key and Name are set for matched
// and registered outcomes, Reason for rejections.
type IdentifyOutcome struct {
	Type       OutcomeType
	Key        int
	Name       string
	Similarity float64
	Reason     quality.Reason
}

// RegisterStatus classifies the result of Register.
type RegisterStatus string

const (
	StatusSuccess RegisterStatus = "success"
	StatusExists  RegisterStatus = "exists"
	StatusFailed  RegisterStatus = "failed"
)

// RegisterOutcome is the result of Register.
type RegisterOutcome struct {
	Status     RegisterStatus
	Key        int
	Name       string
	Similarity float64
	Reason     quality.Reason
}

// Resolver is safe for concurrent use. Construct one per process with New.
type Resolver struct {
	embedder FaceEmbedder
	gate     *quality.Gate
	index    Index
	store    database.IdentityStore
	opts     Options
	logger   *slog.Logger

	// mu serialises search, key reservation, record write and insert so
	// that concurrent misses cannot mint two identities for one face.
	mu sync.Mutex
}

// New creates a resolver.
func New(embedder FaceEmbedder, gate *quality.Gate, index Index, store database.IdentityStore, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		embedder: embedder,
		gate:     gate,
		index:    index,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// analyzed is a prepared upload whose largest face passed the gate.
type analyzed struct {
	image     *imaging.Image
	embedding []float32
}

// analyze decodes the upload, gates the largest face and extracts its embedding.
// A non-accepted decision is returned without error.
func (r *Resolver) analyze(ctx context.Context, data []byte) (*analyzed, quality.Decision, error) {
	img, err := imaging.Prepare(data, r.opts.MaxImageSide)
	if err != nil {
		return nil, quality.Decision{}, err
	}

	face, err := r.embedder.DetectLargestFace(ctx, img.Data)
	if err != nil {
		return nil, quality.Decision{}, fmt.Errorf("detecting face: %w", err)
	}
	if d := r.gate.Evaluate(face); !d.Accepted {
		return nil, d, nil
	}

	emb, err := r.embedder.Extract(ctx, img.Data)
	if errors.Is(err, embedding.ErrNoFaceDetected) {
		return nil, quality.Reject(quality.ReasonNoFace), nil
	}
	if err != nil {
		return nil, quality.Decision{}, fmt.Errorf("extracting embedding: %w", err)
	}
	return &analyzed{image: img, embedding: emb}, quality.Accept(), nil
}

// bestMatch returns the top hit at the configured threshold, nil on a miss.
// Caller holds r.mu.
func (r *Resolver) bestMatch(emb []float32) (*database.SearchResult, error) {
	hits, err := r.index.Search(emb, 1, r.opts.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

// record loads the record of an indexed key; a missing record is a consistency fault.
func (r *Resolver) record(ctx context.Context, key int) (*database.StoredIdentity, error) {
	rec, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading identity %d: %w", key, err)
	}
	if rec == nil {
		r.logger.Error("indexed key has no record", "key", key)
		return nil, fmt.Errorf("%w: key %d is indexed but has no record", ErrConsistency, key)
	}
	return rec, nil
}

// mint writes the record for the next key and then appends the vector. A failed
// insert leaves an orphan record at index.Len(), which is invisible to readers
// and overwritten by the next mint. Caller holds r.mu.
func (r *Resolver) mint(ctx context.Context, emb []float32, name string, image []byte) (int, error) {
	normalized, err := database.Normalize(emb)
	if err != nil {
		return 0, err
	}

	key := r.index.Len()
	rec := database.StoredIdentity{Key: key, Name: name, Image: image, Embedding: normalized}
	if err := r.store.Put(ctx, rec); err != nil {
		return 0, fmt.Errorf("storing identity %d: %w", key, err)
	}

	got, err := r.index.Insert(emb)
	if err != nil {
		r.logger.Warn("vector insert failed after record write", "key", key, "error", err)
		return 0, fmt.Errorf("inserting vector: %w", err)
	}
	if got != key {
		r.logger.Error("index assigned unexpected key", "reserved", key, "assigned", got)
		return 0, fmt.Errorf("%w: reserved key %d but index assigned %d", ErrConsistency, key, got)
	}
	return key, nil
}

// Identify resolves the face in an image to an identity. Unknown faces become new
// unnamed identities unless CreateOnNoMatch is off.
func (r *Resolver) Identify(ctx context.Context, image []byte) (*IdentifyOutcome, error) {
	a, decision, err := r.analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	if !decision.Accepted {
		r.logger.Debug("identify rejected", "reason", decision.Reason)
		return &IdentifyOutcome{Type: OutcomeRejected, Reason: decision.Reason}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hit, err := r.bestMatch(a.embedding)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		rec, err := r.record(ctx, hit.Key)
		if err != nil {
			return nil, err
		}
		return &IdentifyOutcome{Type: OutcomeMatched, Key: hit.Key, Name: rec.Name, Similarity: hit.Score}, nil
	}

	if !r.opts.CreateOnNoMatch {
		return &IdentifyOutcome{Type: OutcomeUnknown}, nil
	}

	key, err := r.mint(ctx, a.embedding, "", a.image.Data)
	if err != nil {
		return nil, err
	}
	r.logger.Info("registered unnamed identity", "key", key)
	return &IdentifyOutcome{Type: OutcomeRegistered, Key: key}, nil
}

// Register stores a named face. If the face already matches an identity, that
// identity's name and image are replaced and no new key is minted.
func (r *Resolver) Register(ctx context.Context, image []byte, name string) (*RegisterOutcome, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}

	a, decision, err := r.analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	if !decision.Accepted {
		r.logger.Debug("register rejected", "reason", decision.Reason)
		return &RegisterOutcome{Status: StatusFailed, Reason: decision.Reason}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hit, err := r.bestMatch(a.embedding)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		if _, err := r.record(ctx, hit.Key); err != nil {
			return nil, err
		}
		rec := database.StoredIdentity{Key: hit.Key, Name: name, Image: a.image.Data}
		if err := r.store.Put(ctx, rec); err != nil {
			return nil, fmt.Errorf("updating identity %d: %w", hit.Key, err)
		}
		r.logger.Info("updated existing identity", "key", hit.Key, "name", name, "similarity", hit.Score)
		return &RegisterOutcome{Status: StatusExists, Key: hit.Key, Name: name, Similarity: hit.Score}, nil
	}

	key, err := r.mint(ctx, a.embedding, name, a.image.Data)
	if err != nil {
		return nil, err
	}
	r.logger.Info("registered identity", "key", key, "name", name)
	return &RegisterOutcome{Status: StatusSuccess, Key: key, Name: name}, nil
}
