package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/Rohith2006/Facial-Recognition/internal/constants"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
)

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *resolver.Stats
	expiresAt time.Time
}

func (c *statsCache) get() (*resolver.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *resolver.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(constants.StatsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	resolver FaceResolver
	cache    statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(r FaceResolver) *StatsHandler {
	return &StatsHandler{resolver: r}
}

func (h *StatsHandler) invalidate() {
	if h != nil {
		h.cache.invalidate()
	}
}

// Get returns index and store statistics
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if stats, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := h.resolver.Stats(r.Context())
	if err != nil {
		respondResolverError(w, r, err)
		return
	}
	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}
