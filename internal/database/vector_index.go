package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IndexOptions configures OpenVectorIndex.
type IndexOptions struct {
	Dim          int   // required embedding dimension
	CompactEvery int   // inserts between snapshot rewrites, DefaultCompactEvery when <= 0
	Codec        Codec // snapshot compression
	HNSW         bool  // use an HNSW graph for candidate generation
	Logger       *slog.Logger
	FS           FileSystem // WAL file system, LocalFS when nil
}

// IndexStats describes the current state of an open index.
type IndexStats struct {
	Len          int       `json:"len"`
	Dim          int       `json:"dim"`
	WALRecords   int       `json:"wal_records"`
	Generation   string    `json:"generation"`
	Codec        string    `json:"codec"`
	HNSW         bool      `json:"hnsw"`
	LastCompact  time.Time `json:"last_compact"`
	ReadOnly     bool      `json:"read_only"`
	CompactEvery int       `json:"compact_every"`
}

// VectorIndex is an append-only set of unit-normalised embeddings addressed by their
// insertion ordinal. Inserts are durable (WAL record fsynced) before they return.
// Searches are exact; the optional HNSW graph only narrows the candidate set on large
// indexes and every candidate is rescored exactly.
type VectorIndex struct {
	mu sync.RWMutex

	dir    string
	opts   IndexOptions
	fs     FileSystem
	logger *slog.Logger

	vectors [][]float32
	graph   *HNSWIndex

	wal            *walWriter
	snapGeneration uuid.UUID
	lastCompact    time.Time
	sinceCompact   int

	// broken is set when a failed write could not be rolled back; all further
	// inserts fail with it.
	broken error
	closed bool
	unlock func()
}

// OpenVectorIndex opens (or creates) the index stored in dir and takes an exclusive
// lock on it. Missing files mean an empty index; any unreadable or inconsistent state
// fails with ErrCorruptIndex.
func OpenVectorIndex(dir string, opts IndexOptions) (*VectorIndex, error) {
	if opts.Dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", opts.Dim)
	}
	if opts.CompactEvery <= 0 {
		opts.CompactEvery = DefaultCompactEvery
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	fs := opts.FS
	if fs == nil {
		fs = LocalFS{}
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	_, unlock, err := acquireDirLock(filepath.Join(dir, LockFile))
	if err != nil {
		return nil, err
	}

	idx := &VectorIndex{
		dir:    dir,
		opts:   opts,
		fs:     fs,
		logger: opts.Logger.With("component", "vector_index"),
		unlock: unlock,
	}
	if err := idx.load(); err != nil {
		idx.closeWAL()
		unlock()
		return nil, err
	}
	if opts.HNSW {
		idx.graph = NewHNSWIndex()
		idx.graph.BuildFromVectors(idx.vectors)
	}
	return idx, nil
}

func snapshotPath(dir string) string { return filepath.Join(dir, SnapshotFile) }
func walPath(dir string) string      { return filepath.Join(dir, WALFile) }
func metaPath(dir string) string     { return filepath.Join(dir, MetaFile) }

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptIndex, fmt.Sprintf(format, args...))
}

// load recovers state from snapshot + WAL.
func (idx *VectorIndex) load() error {
	snap, _, err := readSnapshot(snapshotPath(idx.dir))
	if err != nil {
		return corrupt("%v", err)
	}

	walFile, err := idx.fs.OpenFile(walPath(idx.dir), os.O_RDONLY, 0)
	walExists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("opening WAL: %w", err)
	}

	switch {
	case snap == nil && !walExists:
		idx.logger.Info("creating empty index", "dir", idx.dir, "dim", idx.opts.Dim)
		return idx.compactLocked()
	case snap == nil:
		_ = walFile.Close()
		return corrupt("WAL present without snapshot in %s", idx.dir)
	}

	if snap.Dim != idx.opts.Dim {
		if walExists {
			_ = walFile.Close()
		}
		return corrupt("snapshot dimension %d, configured %d", snap.Dim, idx.opts.Dim)
	}
	idx.vectors = snap.Vectors
	idx.snapGeneration = snap.Generation
	idx.lastCompact = snap.CreatedAt

	if !walExists {
		// only an interrupted first initialisation leaves a snapshot without a log
		if len(snap.Vectors) > 0 {
			return corrupt("WAL missing for non-empty snapshot in %s", idx.dir)
		}
		return idx.compactLocked()
	}

	rep, err := readWAL(walFile, idx.opts.Dim)
	_ = walFile.Close()
	if err != nil {
		return corrupt("%v", err)
	}

	stale := false
	switch rep.header.generation {
	case snap.Generation:
		if rep.header.baseKey != len(snap.Vectors) {
			return corrupt("WAL base key %d, snapshot holds %d vectors", rep.header.baseKey, len(snap.Vectors))
		}
	case snap.PrevGeneration:
		// crash between snapshot rewrite and WAL reset
		if rep.header.baseKey > len(snap.Vectors) {
			return corrupt("stale WAL base key %d beyond snapshot size %d", rep.header.baseKey, len(snap.Vectors))
		}
		stale = true
	default:
		return corrupt("WAL generation %s does not belong to snapshot %s", rep.header.generation, snap.Generation)
	}

	applied := 0
	for i, key := range rep.keys {
		if key < len(idx.vectors) {
			continue
		}
		idx.vectors = append(idx.vectors, rep.vectors[i])
		applied++
	}

	if rep.torn {
		idx.logger.Warn("dropping torn WAL tail", "offset", rep.goodBytes)
		f, err := idx.fs.OpenFile(walPath(idx.dir), os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening WAL for repair: %w", err)
		}
		terr := f.Truncate(rep.goodBytes)
		if err := f.Close(); terr == nil {
			terr = err
		}
		if terr != nil {
			return fmt.Errorf("truncating torn WAL tail: %w", terr)
		}
	}

	idx.logger.Info("index loaded",
		"dir", idx.dir,
		"snapshot", len(snap.Vectors),
		"replayed", applied,
		"len", len(idx.vectors),
	)

	w, err := openWALForAppend(idx.fs, walPath(idx.dir), rep.header, rep.goodBytes, len(rep.keys))
	if err != nil {
		return err
	}
	idx.wal = w
	idx.sinceCompact = len(rep.keys)

	if stale {
		return idx.compactLocked()
	}
	return nil
}

// Insert normalises the embedding, appends it under the next key and makes it durable
// before returning the key. On a persistence failure nothing is added.
func (idx *VectorIndex) Insert(embedding []float32) (int, error) {
	if err := checkDim(embedding, idx.opts.Dim); err != nil {
		return 0, err
	}
	vec, err := Normalize(embedding)
	if err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return 0, ErrIndexClosed
	}
	if idx.broken != nil {
		return 0, fmt.Errorf("%w: index is read-only after earlier failure: %v", ErrPersistence, idx.broken)
	}

	key := len(idx.vectors)
	usable, err := idx.wal.append(key, vec)
	if err != nil {
		if !usable {
			idx.broken = err
			idx.logger.Error("WAL rollback failed, index is now read-only", "error", err)
		}
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	idx.vectors = append(idx.vectors, vec)
	if idx.graph != nil {
		idx.graph.Add(key, vec)
	}
	idx.sinceCompact++

	if idx.sinceCompact >= idx.opts.CompactEvery {
		// the insert is already durable in the WAL; a failed compaction only delays the rewrite
		if err := idx.compactLocked(); err != nil {
			idx.logger.Warn("compaction failed", "error", err)
		}
	}
	return key, nil
}

// Search returns up to topK keys whose cosine similarity to query is at least threshold,
// sorted by descending score and ascending key on ties.
func (idx *VectorIndex) Search(query []float32, topK int, threshold float64) ([]SearchResult, error) {
	if err := checkDim(query, idx.opts.Dim); err != nil {
		return nil, err
	}
	q, err := Normalize(query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrIndexClosed
	}

	var results []SearchResult
	if keys, ok := idx.candidates(q, topK); ok {
		results = make([]SearchResult, 0, len(keys))
		for _, key := range keys {
			if s := Dot(q, idx.vectors[key]); s >= threshold {
				results = append(results, SearchResult{Key: key, Score: s})
			}
		}
	} else {
		results = make([]SearchResult, 0, min(topK, len(idx.vectors)))
		for key, v := range idx.vectors {
			if s := Dot(q, v); s >= threshold {
				results = append(results, SearchResult{Key: key, Score: s})
			}
		}
	}

	slices.SortFunc(results, func(a, b SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Key - b.Key
		}
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// candidates asks the HNSW graph for a candidate pool. It reports false when the
// exact scan should be used instead.
func (idx *VectorIndex) candidates(q []float32, topK int) ([]int, bool) {
	if idx.graph == nil {
		return nil, false
	}
	k := max(topK*HNSWSearchMultiplier, HNSWEfSearch)
	if k >= len(idx.vectors) {
		return nil, false
	}
	return idx.graph.Candidates(q, k), true
}

// Len returns the number of stored vectors, which is also the next key.
func (idx *VectorIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dim returns the configured dimension.
func (idx *VectorIndex) Dim() int {
	return idx.opts.Dim
}

// Vector returns a copy of the normalised vector stored under key.
func (idx *VectorIndex) Vector(key int) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if key < 0 || key >= len(idx.vectors) {
		return nil, false
	}
	return slices.Clone(idx.vectors[key]), true
}

// Stats returns a summary of the index state.
func (idx *VectorIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s := IndexStats{
		Len:          len(idx.vectors),
		Dim:          idx.opts.Dim,
		Generation:   idx.snapGeneration.String(),
		Codec:        idx.opts.Codec.String(),
		HNSW:         idx.graph != nil,
		LastCompact:  idx.lastCompact,
		ReadOnly:     idx.broken != nil,
		CompactEvery: idx.opts.CompactEvery,
	}
	if idx.wal != nil {
		s.WALRecords = idx.wal.records
	}
	return s
}

// Compact rewrites the snapshot with the full state and resets the WAL.
func (idx *VectorIndex) Compact() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return ErrIndexClosed
	}
	if idx.broken != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, idx.broken)
	}
	return idx.compactLocked()
}

// Replace swaps the whole content for vectors (keys are their positions) and compacts.
// Used to rebuild an index from the identity store.
func (idx *VectorIndex) Replace(vectors [][]float32) error {
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if err := checkDim(v, idx.opts.Dim); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		n, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		normalized[i] = n
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return ErrIndexClosed
	}

	prev := idx.vectors
	idx.vectors = normalized
	if err := idx.compactLocked(); err != nil {
		idx.vectors = prev
		// The replacement snapshot may already sit next to the old WAL.
		if rerr := idx.restoreSnapshotLocked(); rerr != nil {
			idx.broken = rerr
			idx.logger.Error("restoring snapshot after failed replace", "error", rerr)
		}
		return err
	}
	idx.broken = nil
	if idx.graph != nil {
		idx.graph = NewHNSWIndex()
		idx.graph.BuildFromVectors(idx.vectors)
	}
	return nil
}

// compactLocked writes a new snapshot generation, then atomically replaces the WAL
// with an empty one for that generation. A crash between the two steps leaves a WAL
// whose generation is the snapshot's PrevGeneration, which load accepts.
func (idx *VectorIndex) compactLocked() error {
	walGeneration := idx.snapGeneration
	if idx.wal != nil {
		walGeneration = idx.wal.header.generation
	}

	gen := uuid.New()
	now := time.Now().UTC()
	snap := &snapshot{
		Generation:     gen,
		PrevGeneration: walGeneration,
		Dim:            idx.opts.Dim,
		Vectors:        idx.vectors,
		CreatedAt:      now,
	}
	if err := writeSnapshot(snapshotPath(idx.dir), snap, idx.opts.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	w, err := createWAL(idx.fs, walPath(idx.dir), walHeader{
		dim:        idx.opts.Dim,
		baseKey:    len(idx.vectors),
		generation: gen,
	})
	if err != nil {
		// the old WAL stays live and is still replayable against the new snapshot
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	idx.closeWAL()
	idx.wal = w
	idx.snapGeneration = gen
	idx.sinceCompact = 0
	idx.lastCompact = now

	if err := writeIndexMetadata(metaPath(idx.dir), IndexMetadata{
		Count:      len(idx.vectors),
		Dim:        idx.opts.Dim,
		Generation: gen.String(),
		Codec:      idx.opts.Codec.String(),
		HNSW:       idx.opts.HNSW,
		BuildTime:  now,
	}); err != nil {
		idx.logger.Warn("writing index metadata", "error", err)
	}

	idx.logger.Debug("index compacted", "len", len(idx.vectors), "generation", gen)
	return nil
}

// restoreSnapshotLocked writes the in-memory state as a snapshot that the live WAL
// replays against as a stale log, so keys already on disk keep their vectors.
func (idx *VectorIndex) restoreSnapshotLocked() error {
	gen := uuid.New()
	snap := &snapshot{
		Generation:     gen,
		PrevGeneration: idx.wal.header.generation,
		Dim:            idx.opts.Dim,
		Vectors:        idx.vectors,
		CreatedAt:      time.Now().UTC(),
	}
	if err := writeSnapshot(snapshotPath(idx.dir), snap, idx.opts.Codec); err != nil {
		return err
	}
	idx.snapGeneration = gen
	return nil
}

func (idx *VectorIndex) closeWAL() {
	if err := idx.wal.close(); err != nil {
		idx.logger.Warn("closing WAL", "error", err)
	}
	idx.wal = nil
}

// Close compacts pending WAL records, closes the log and releases the directory lock.
func (idx *VectorIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true

	var err error
	if idx.broken == nil && idx.wal != nil && idx.wal.records > 0 {
		err = idx.compactLocked()
	}
	idx.closeWAL()
	idx.unlock()
	return err
}
