package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rohith2006/Facial-Recognition/internal/blobstore"
	"github.com/Rohith2006/Facial-Recognition/internal/config"
	"github.com/Rohith2006/Facial-Recognition/internal/database"
	_ "github.com/Rohith2006/Facial-Recognition/internal/database/mariadb"
	_ "github.com/Rohith2006/Facial-Recognition/internal/database/postgres"
	"github.com/Rohith2006/Facial-Recognition/internal/embedding"
	"github.com/Rohith2006/Facial-Recognition/internal/quality"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/spf13/cobra"
)

// app holds the long-lived components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    database.IdentityStore
	index    *database.VectorIndex
	resolver *resolver.Resolver
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := applyThresholdFlag(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openIndex opens the vector index in DATA_DIR.
func openIndex(cfg *config.Config, logger *slog.Logger) (*database.VectorIndex, error) {
	codec, err := database.ParseCodec(cfg.Index.Codec)
	if err != nil {
		return nil, err
	}
	idx, err := database.OpenVectorIndex(cfg.DataDir, database.IndexOptions{
		Dim:          cfg.Embedding.Dim,
		CompactEvery: cfg.Index.CompactEvery,
		Codec:        codec,
		HNSW:         cfg.Index.HNSW,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector index in %s: %w", cfg.DataDir, err)
	}
	return idx, nil
}

// openStore connects to the identity store, moving images to object storage
// when BLOB_ENDPOINT is set.
func openStore(ctx context.Context, cfg *config.Config) (database.IdentityStore, error) {
	fmt.Printf("Connecting to %s identity store...\n", cfg.Database.Driver)
	store, err := database.OpenIdentityStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if !cfg.Blob.Enabled() {
		return store, nil
	}

	blobs, err := blobstore.Open(ctx, cfg.Blob)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening blob storage: %w", err)
	}
	fmt.Printf("Storing face images in bucket %s at %s\n", cfg.Blob.Bucket, cfg.Blob.Endpoint)
	return database.WithImageStore(store, blobs), nil
}

// newApp opens the store and the index and builds the resolver.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	idx, err := openIndex(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	engine := embedding.NewEngine(embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.RateLimit), cfg.Embedding.Dim)
	res := resolver.New(engine, quality.NewGate(cfg.Quality), idx, store, resolver.Options{
		SimilarityThreshold: cfg.Resolver.SimilarityThreshold,
		CreateOnNoMatch:     cfg.Resolver.CreateOnNoMatch,
		MaxImageSide:        cfg.Embedding.MaxImageSide,
		Logger:              logger,
	})

	return &app{cfg: cfg, logger: logger, store: store, index: idx, resolver: res}, nil
}

// Close compacts and closes the index, then closes the store.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		fmt.Printf("Warning: failed to close vector index: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close identity store: %v\n", err)
	}
}
