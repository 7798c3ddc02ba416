package database

import (
	"github.com/coder/hnsw"
)

// HNSWIndex is an approximate candidate generator over the normalised vectors of a
// VectorIndex. It never decides a match on its own: every candidate is rescored exactly
// by the caller. Guarded by the owning VectorIndex lock.
type HNSWIndex struct {
	graph *hnsw.Graph[int]
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return &HNSWIndex{graph: g}
}

// BuildFromVectors adds vectors keyed by their position.
func (h *HNSWIndex) BuildFromVectors(vectors [][]float32) {
	nodes := make([]hnsw.Node[int], 0, len(vectors))
	for key, v := range vectors {
		nodes = append(nodes, hnsw.MakeNode(key, v))
	}
	if len(nodes) > 0 {
		h.graph.Add(nodes...)
	}
}

// Add adds a single vector.
func (h *HNSWIndex) Add(key int, v []float32) {
	h.graph.Add(hnsw.MakeNode(key, v))
}

// Candidates returns up to k keys close to the query.
func (h *HNSWIndex) Candidates(query []float32, k int) []int {
	if h.graph.Len() == 0 || k <= 0 {
		return nil
	}
	neighbors := h.graph.Search(query, k)
	keys := make([]int, len(neighbors))
	for i, n := range neighbors {
		keys[i] = n.Key
	}
	return keys
}
