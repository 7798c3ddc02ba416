package database

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Rohith2006/Facial-Recognition/internal/config"
)

// Opener connects to a backend, applies its migrations and returns the store.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (IdentityStore, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers an identity store backend under a driver name.
// This is called by the backend packages from init to avoid import cycles.
func RegisterBackend(driver string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[driver] = open
}

// Backends returns the registered driver names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OpenIdentityStore opens the backend selected by cfg.Driver.
func OpenIdentityStore(ctx context.Context, cfg *config.DatabaseConfig) (IdentityStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("identity store not configured: DATABASE_URL is required")
	}
	backendsMu.RLock()
	open, ok := backends[cfg.Driver]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("identity store backend %q not registered (available: %v)", cfg.Driver, Backends())
	}
	return open(ctx, cfg)
}
