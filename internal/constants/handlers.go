package constants

import "time"

// HTTP handler constants
const (
	// MaxUploadSize is the largest accepted image upload in bytes
	MaxUploadSize = 20 << 20

	// MaxUploadMemory is how much of a multipart upload is kept in memory
	MaxUploadMemory = 32 << 20

	// StatsCacheTTL is how long the stats endpoint reuses a computed response
	StatsCacheTTL = 10 * time.Second
)
