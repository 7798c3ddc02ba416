package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
)

var walMagic = [4]byte{'F', 'W', 'A', 'L'}

const (
	walVersion = 1
	// Header: Magic (4) + Version (2) + Reserved (2) + Dim (4) + BaseKey (8) + Generation (16) + CRC (4)
	walHeaderSize = 40
	// Record: CRC (4) + Key (8) + Dim (4), followed by Dim*4 bytes of vector
	walRecordHeaderSize = 16
)

var (
	errWALInvalidCRC = errors.New("invalid WAL record checksum")
	errWALBadHeader  = errors.New("invalid WAL header")
)

type walHeader struct {
	dim        int
	baseKey    int
	generation uuid.UUID
}

func (h walHeader) encode() []byte {
	buf := make([]byte, walHeaderSize)
	copy(buf[0:4], walMagic[:])
	binary.LittleEndian.PutUint16(buf[4:], walVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(h.dim))      //nolint:gosec // dim is validated at open
	binary.LittleEndian.PutUint64(buf[12:], uint64(h.baseKey)) //nolint:gosec // keys are non-negative
	copy(buf[20:36], h.generation[:])
	binary.LittleEndian.PutUint32(buf[36:], crc32.ChecksumIEEE(buf[:36]))
	return buf
}

func decodeWALHeader(buf []byte) (walHeader, error) {
	if len(buf) < walHeaderSize {
		return walHeader{}, fmt.Errorf("%w: %d bytes", errWALBadHeader, len(buf))
	}
	if !bytes.Equal(buf[0:4], walMagic[:]) {
		return walHeader{}, fmt.Errorf("%w: bad magic", errWALBadHeader)
	}
	if v := binary.LittleEndian.Uint16(buf[4:]); v != walVersion {
		return walHeader{}, fmt.Errorf("%w: unsupported version %d", errWALBadHeader, v)
	}
	if crc32.ChecksumIEEE(buf[:36]) != binary.LittleEndian.Uint32(buf[36:]) {
		return walHeader{}, fmt.Errorf("%w: checksum mismatch", errWALBadHeader)
	}
	var h walHeader
	h.dim = int(binary.LittleEndian.Uint32(buf[8:]))
	h.baseKey = int(binary.LittleEndian.Uint64(buf[12:])) //nolint:gosec // written from a non-negative int
	copy(h.generation[:], buf[20:36])
	return h, nil
}

func walRecordSize(dim int) int {
	return walRecordHeaderSize + 4*dim
}

// encodeWALRecord frames one insert.
// Format: [CRC32: 4 bytes] [Key: 8 bytes] [Dim: 4 bytes] [Vector: Dim*4 bytes]
// The CRC covers everything after itself.
func encodeWALRecord(key int, vec []float32) []byte {
	buf := make([]byte, walRecordSize(len(vec)))
	binary.LittleEndian.PutUint64(buf[4:], uint64(key))       //nolint:gosec // keys are non-negative
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(vec))) //nolint:gosec // dim is validated at open
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[walRecordHeaderSize+4*i:], math.Float32bits(x))
	}
	binary.LittleEndian.PutUint32(buf[0:], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

// walReplay is the outcome of reading a log file.
type walReplay struct {
	header    walHeader
	keys      []int
	vectors   [][]float32
	goodBytes int64 // offset just past the last complete record
	torn      bool  // trailing bytes shorter than one record were found
}

// readWAL parses a whole log. A trailing partial record is reported as torn, any
// other inconsistency (checksum, dimension, key sequence) is an error.
func readWAL(r io.Reader, dim int) (*walReplay, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading WAL: %w", err)
	}

	h, err := decodeWALHeader(data)
	if err != nil {
		return nil, err
	}
	if h.dim != dim {
		return nil, fmt.Errorf("WAL dimension %d, index dimension %d: %w", h.dim, dim, ErrDimensionMismatch)
	}

	rep := &walReplay{header: h, goodBytes: walHeaderSize}
	size := walRecordSize(dim)
	next := h.baseKey
	for off := walHeaderSize; off < len(data); off += size {
		if len(data)-off < size {
			rep.torn = true
			break
		}
		rec := data[off : off+size]
		if crc32.ChecksumIEEE(rec[4:]) != binary.LittleEndian.Uint32(rec[0:]) {
			return nil, fmt.Errorf("%w at offset %d", errWALInvalidCRC, off)
		}
		key := int(binary.LittleEndian.Uint64(rec[4:])) //nolint:gosec // written from a non-negative int
		if key != next {
			return nil, fmt.Errorf("WAL key gap at offset %d: got %d, want %d", off, key, next)
		}
		if d := int(binary.LittleEndian.Uint32(rec[12:])); d != dim {
			return nil, fmt.Errorf("WAL record dimension %d at offset %d: %w", d, off, ErrDimensionMismatch)
		}
		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[walRecordHeaderSize+4*i:]))
		}
		rep.keys = append(rep.keys, key)
		rep.vectors = append(rep.vectors, vec)
		rep.goodBytes = int64(off + size)
		next++
	}
	return rep, nil
}

// walWriter appends records to an open log file.
type walWriter struct {
	fs      FileSystem
	path    string
	f       File
	header  walHeader
	offset  int64
	records int
}

// createWAL atomically replaces path with an empty log carrying header h.
func createWAL(fs FileSystem, path string, h walHeader) (*walWriter, error) {
	tmp := path + ".tmp"
	f, err := fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating WAL: %w", err)
	}
	if _, err := f.Write(h.encode()); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return nil, fmt.Errorf("writing WAL header: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return nil, fmt.Errorf("syncing WAL header: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return nil, fmt.Errorf("closing WAL: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return nil, fmt.Errorf("installing WAL: %w", err)
	}
	return openWALForAppend(fs, path, h, walHeaderSize, 0)
}

func openWALForAppend(fs FileSystem, path string, h walHeader, offset int64, records int) (*walWriter, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening WAL: %w", err)
	}
	return &walWriter{fs: fs, path: path, f: f, header: h, offset: offset, records: records}, nil
}

// append writes and fsyncs one record. On failure the file is truncated back to the
// previous record boundary; if that also fails the returned bool is false and the
// writer must not be used again.
func (w *walWriter) append(key int, vec []float32) (bool, error) {
	buf := encodeWALRecord(key, vec)
	_, err := w.f.Write(buf)
	if err == nil {
		err = w.f.Sync()
	}
	if err != nil {
		if terr := w.f.Truncate(w.offset); terr != nil {
			return false, fmt.Errorf("%w (rollback failed: %v)", err, terr)
		}
		return true, err
	}
	w.offset += int64(len(buf))
	w.records++
	return true, nil
}

func (w *walWriter) close() error {
	if w == nil || w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
