package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Rohith2006/Facial-Recognition/internal/constants"
	"github.com/Rohith2006/Facial-Recognition/internal/quality"
)

//go:embed defaults.yaml
var qualityDefaultsYAML []byte

type Config struct {
	DataDir   string
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Index     IndexConfig
	Resolver  ResolverConfig
	Quality   quality.Config
	Blob      BlobConfig
	Web       WebConfig
	Log       LogConfig
}

type EmbeddingConfig struct {
	URL          string  // defaults to http://localhost:8000
	Dim          int     // defaults to 512
	RateLimit    float64 // requests per second, 0 disables limiting
	MaxImageSide int     // downscale uploads larger than this before detection, 0 disables
}

type DatabaseConfig struct {
	Driver       string // postgres (default) or mariadb
	URL          string // connection URL / DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type IndexConfig struct {
	CompactEvery int    // inserts between snapshot rewrites (default 1000)
	Codec        string // snapshot compression: zstd (default), lz4, none
	HNSW         bool   // use the HNSW graph for candidate generation
}

type ResolverConfig struct {
	SimilarityThreshold float64 // minimum cosine similarity for a match (default 0.3)
	CreateOnNoMatch     bool    // identify mints a new identity on miss (default true)
}

// BlobConfig configures optional S3-compatible storage for face images.
// Images stay in the identity store when Endpoint is empty.
type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether image blobs go to object storage.
func (c BlobConfig) Enabled() bool {
	return c.Endpoint != ""
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
}

type LogConfig struct {
	Level  string // debug, info (default), warn, error
	Format string // text (default) or json
}

// NewLogger builds the slog logger used by the index and resolver.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envThreshold reads a cosine similarity threshold, which may be negative.
// Unparsable or out of range values are an error rather than the default.
func envThreshold(key string, defaultVal float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < -1 || f > 1 {
		return 0, fmt.Errorf("%s must be a number within [-1, 1], got %q", key, s)
	}
	return f, nil
}

// envBool reads an environment variable as a bool (1/0, true/false, ...).
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load reads the configuration from the environment. The quality gate starts from the
// embedded defaults, then QUALITY_CONFIG (a YAML file), then QUALITY_MIN_FACE_SIZE.
func Load() (*Config, error) {
	q, err := quality.ParseConfig(qualityDefaultsYAML, quality.DefaultConfig())
	if err != nil {
		// embedded file, only a build problem can get here
		panic("failed to parse embedded defaults.yaml: " + err.Error())
	}

	if path := os.Getenv("QUALITY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading quality config: %w", err)
		}
		if q, err = quality.ParseConfig(data, q); err != nil {
			return nil, err
		}
	}
	q.MinFaceSize = envFloat("QUALITY_MIN_FACE_SIZE", q.MinFaceSize)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	threshold, err := envThreshold("SIMILARITY_THRESHOLD", constants.DefaultSimilarityThreshold)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir: envString("DATA_DIR", "data"),
		Embedding: EmbeddingConfig{
			URL:          envString("EMBEDDING_URL", constants.DefaultEmbeddingURL),
			Dim:          envInt("EMBEDDING_DIM", constants.DefaultEmbeddingDim),
			RateLimit:    envFloat("EMBEDDING_RATE_LIMIT", 0),
			MaxImageSide: envInt("EMBEDDING_MAX_IMAGE_SIDE", 0),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", "postgres")),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Index: IndexConfig{
			CompactEvery: envInt("INDEX_COMPACT_EVERY", 1000),
			Codec:        strings.ToLower(envString("INDEX_CODEC", "zstd")),
			HNSW:         envBool("INDEX_HNSW", false),
		},
		Resolver: ResolverConfig{
			SimilarityThreshold: threshold,
			CreateOnNoMatch:     envBool("CREATE_ON_NO_MATCH", true),
		},
		Quality: q,
		Blob: BlobConfig{
			Endpoint:  os.Getenv("BLOB_ENDPOINT"),
			AccessKey: os.Getenv("BLOB_ACCESS_KEY"),
			SecretKey: os.Getenv("BLOB_SECRET_KEY"),
			Bucket:    envString("BLOB_BUCKET", "faces"),
			UseSSL:    envBool("BLOB_USE_SSL", false),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "mariadb":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (expected postgres or mariadb)", cfg.Database.Driver)
	}
	switch cfg.Index.Codec {
	case "zstd", "lz4", "none":
	default:
		return nil, fmt.Errorf("unsupported INDEX_CODEC %q (expected zstd, lz4 or none)", cfg.Index.Codec)
	}

	return cfg, nil
}
