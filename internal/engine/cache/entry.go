package cache

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// entryFormatVersion is bumped whenever the on-disk layout changes. Entries
// written with another version are treated as corrupt.
const entryFormatVersion = 1

// maxHeaderBytes bounds how much of a file List will read looking for the
// header line.
const maxHeaderBytes = 4096

// Metadata describes what a cache entry holds. It is stored in the entry
// header so operators can inspect the cache without decoding payloads.
type Metadata struct {
	// Operation is the logical request kind, e.g. "list_flags".
	Operation string `json:"operation,omitempty"`

	// Label is a human-readable description, typically the project key.
	Label string `json:"label,omitempty"`
}

// Header is the first line of every cache file.
type Header struct {
	Version   int       `json:"v"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
	Checksum  string    `json:"sha256"`

	Metadata
}

// CacheEntry is a decoded cache file.
//
//nolint:revive // CacheEntry is the canonical name for this exported type.
type CacheEntry struct {
	Header

	// Data is the cached payload (JSON).
	Data json.RawMessage
}

// Age returns how long ago the entry was written, relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// IsExpired reports whether the entry is outside ttl at now. An entry is
// valid only while now - created < ttl, so a zero TTL expires everything.
func (h Header) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(h.CreatedAt) >= ttl
}

// encodeEntry renders the header line followed by the payload.
func encodeEntry(key string, meta Metadata, data json.RawMessage, createdAt time.Time) ([]byte, error) {
	sum := sha256.Sum256(data)
	header := Header{
		Version:   entryFormatVersion,
		Key:       key,
		CreatedAt: createdAt.UTC(),
		Size:      len(data),
		Checksum:  hex.EncodeToString(sum[:]),
		Metadata:  meta,
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal cache header: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(headerBytes) + 1 + len(data))
	buf.Write(headerBytes)
	buf.WriteByte('\n')
	buf.Write(data)
	return buf.Bytes(), nil
}

// decodeEntry parses and verifies a full cache file.
func decodeEntry(raw []byte) (*CacheEntry, error) {
	headerLine, payload, found := bytes.Cut(raw, []byte{'\n'})
	if !found {
		return nil, fmt.Errorf("%w: missing header terminator", ErrCacheCorrupt)
	}

	header, err := parseHeader(headerLine)
	if err != nil {
		return nil, err
	}

	if len(payload) != header.Size {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			ErrCacheCorrupt, len(payload), header.Size)
	}

	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCacheCorrupt)
	}

	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrCacheCorrupt)
	}

	return &CacheEntry{Header: *header, Data: json.RawMessage(payload)}, nil
}

// readHeader reads only the header line from r.
func readHeader(r io.Reader) (*Header, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, maxHeaderBytes), maxHeaderBytes)
	line, err := br.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: header line not found", ErrCacheCorrupt)
		}
		return nil, err
	}
	return parseHeader(bytes.TrimSuffix(line, []byte{'\n'}))
}

func parseHeader(line []byte) (*Header, error) {
	var header Header
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	if header.Version != entryFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCacheCorrupt, header.Version)
	}
	if header.Key == "" || header.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: header missing key or timestamp", ErrCacheCorrupt)
	}
	return &header, nil
}
