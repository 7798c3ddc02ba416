package handlers

import (
	"net/http"

	"github.com/Rohith2006/Facial-Recognition/internal/config"
	"github.com/Rohith2006/Facial-Recognition/internal/quality"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	SimilarityThreshold float64        `json:"similarity_threshold"`
	CreateOnNoMatch     bool           `json:"create_on_no_match"`
	EmbeddingDim        int            `json:"embedding_dim"`
	DatabaseDriver      string         `json:"database_driver"`
	IndexCodec          string         `json:"index_codec"`
	IndexHNSW           bool           `json:"index_hnsw"`
	BlobStorage         bool           `json:"blob_storage"`
	Quality             quality.Config `json:"quality"`
}

// Get returns the matching and storage settings in effect
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		SimilarityThreshold: h.config.Resolver.SimilarityThreshold,
		CreateOnNoMatch:     h.config.Resolver.CreateOnNoMatch,
		EmbeddingDim:        h.config.Embedding.Dim,
		DatabaseDriver:      h.config.Database.Driver,
		IndexCodec:          h.config.Index.Codec,
		IndexHNSW:           h.config.Index.HNSW,
		BlobStorage:         h.config.Blob.Enabled(),
		Quality:             h.config.Quality,
	})
}
