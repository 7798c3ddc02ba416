package database

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"
)

var snapshotMagic = [4]byte{'F', 'S', 'N', 'P'}

const (
	snapshotVersion = 1
	// Header: Magic (4) + Version (1) + Codec (1) + Reserved (2) + CRC of block (4)
	snapshotHeaderSize = 12
	metadataVersion    = 1
)

// snapshot is the full index state at a compaction point.
type snapshot struct {
	Generation     uuid.UUID
	PrevGeneration uuid.UUID // generation of the WAL that was live when this snapshot was cut
	Dim            int
	Vectors        [][]float32
	CreatedAt      time.Time
}

// IndexMetadata is the human readable sidecar written next to the snapshot.
// It is informational only, the snapshot and WAL are authoritative.
type IndexMetadata struct {
	Count      int       `json:"count"`
	Dim        int       `json:"dim"`
	Generation string    `json:"generation"`
	Codec      string    `json:"codec"`
	HNSW       bool      `json:"hnsw"`
	BuildTime  time.Time `json:"build_time"`
	Version    int       `json:"version"`
}

func encodeSnapshot(s *snapshot, codec Codec) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(s); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	block, err := compressBlock(payload.Bytes(), codec)
	if err != nil {
		return nil, err
	}

	out := make([]byte, snapshotHeaderSize+len(block))
	copy(out[0:4], snapshotMagic[:])
	out[4] = snapshotVersion
	out[5] = byte(codec)
	binary.LittleEndian.PutUint32(out[8:], crc32.ChecksumIEEE(block))
	copy(out[snapshotHeaderSize:], block)
	return out, nil
}

func decodeSnapshot(data []byte) (*snapshot, Codec, error) {
	if len(data) < snapshotHeaderSize || !bytes.Equal(data[0:4], snapshotMagic[:]) {
		return nil, 0, errors.New("not a snapshot file")
	}
	if data[4] != snapshotVersion {
		return nil, 0, fmt.Errorf("unsupported snapshot version %d", data[4])
	}
	codec := Codec(data[5])
	block := data[snapshotHeaderSize:]
	if crc32.ChecksumIEEE(block) != binary.LittleEndian.Uint32(data[8:]) {
		return nil, 0, errors.New("snapshot checksum mismatch")
	}
	payload, err := decompressBlock(block, codec)
	if err != nil {
		return nil, 0, err
	}

	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&s); err != nil {
		return nil, 0, fmt.Errorf("decoding snapshot: %w", err)
	}
	for i, v := range s.Vectors {
		if len(v) != s.Dim {
			return nil, 0, fmt.Errorf("snapshot vector %d has dimension %d, want %d", i, len(v), s.Dim)
		}
	}
	return &s, codec, nil
}

// writeSnapshot replaces path atomically (temp file, fsync, rename).
func writeSnapshot(path string, s *snapshot, codec Codec) error {
	data, err := encodeSnapshot(s, codec)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// readSnapshot returns nil, nil when the file does not exist.
func readSnapshot(path string) (*snapshot, Codec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func writeIndexMetadata(path string, m IndexMetadata) error {
	m.Version = metadataVersion
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadIndexMetadata reads the metadata sidecar from an index directory without
// opening (and locking) the index.
func LoadIndexMetadata(dir string) (IndexMetadata, error) {
	var m IndexMetadata
	data, err := os.ReadFile(metaPath(dir)) //nolint:gosec // path is from trusted config
	if err != nil {
		return m, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return m, nil
}
