package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ldaudit/ldaudit/internal/logging"
)

// Cache file naming.
const (
	cacheFileExtension = ".json"
	tempFilePattern    = ".entry-*.tmp"
	tempFileExtension  = ".tmp"
)

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrCacheCorrupt    = errors.New("cache entry corrupt")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// FileStore provides file-based caching with TTL expiration.
// Each entry lives in its own file named after the key. Safe for concurrent
// use within a process; across processes, atomic renames keep readers from
// seeing partial entries.
type FileStore struct {
	// directory is the cache directory path.
	directory string

	// enabled controls whether caching is active.
	enabled bool

	// ttl is how long entries are served after being written.
	ttl time.Duration

	// now is the clock used for timestamps and expiry checks.
	now func() time.Time

	// mu serializes writers and deleters within this process.
	mu sync.RWMutex
}

// Option customizes a FileStore.
type Option func(*FileStore)

// WithClock replaces the store's clock. Used by tests to move time.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore creates a new file-based cache store.
// The directory will be created if it doesn't exist. A TTL of zero is
// accepted and makes every lookup a miss.
func NewFileStore(directory string, enabled bool, ttlSeconds int, opts ...Option) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false, now: time.Now}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if ttlSeconds < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTTL, ttlSeconds)
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	s := &FileStore{
		directory: directory,
		enabled:   true,
		ttl:       time.Duration(ttlSeconds) * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheNotFound if the entry doesn't exist, ErrCacheExpired if it
// is older than the TTL and ErrCacheCorrupt if it cannot be decoded.
func (s *FileStore) Get(key string) (*CacheEntry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}

	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyToFilePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}

	if entry.Key != key {
		return nil, fmt.Errorf("%w: entry key %q does not match %q", ErrCacheCorrupt, entry.Key, key)
	}

	if entry.IsExpired(s.now(), s.ttl) {
		return nil, ErrCacheExpired
	}

	return entry, nil
}

// Lookup is the fail-open form of Get: it returns the payload and true on a
// fresh hit, and false for every other outcome. Unexpected failures are
// logged at debug level through the logger on ctx.
func (s *FileStore) Lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, err := s.Get(key)
	if err == nil {
		return entry.Data, true
	}

	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheExpired) && !errors.Is(err, ErrCacheDisabled) {
		log := logging.FromContext(ctx)
		log.Debug().Ctx(ctx).
			Str("component", "cache").
			Str("operation", "lookup").
			Str("key", key).
			Err(err).
			Msg("ignoring unreadable cache entry")
	}
	return nil, false
}

// Put stores data under key with the current timestamp, replacing any
// previous entry. The entry is written to a unique temp file in the cache
// directory and renamed into place.
func (s *FileStore) Put(key string, meta Metadata, data json.RawMessage) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	encoded, err := encodeEntry(key, meta, data, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.directory, tempFilePattern)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tempPath := tmp.Name()

	if _, writeErr := tmp.Write(encoded); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if syncErr := tmp.Sync(); syncErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to sync cache file: %w", syncErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to close cache file: %w", closeErr)
	}

	if renameErr := os.Rename(tempPath, s.keyToFilePath(key)); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

// Delete removes a cache entry by key.
// Returns nil if the entry doesn't exist (idempotent).
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// Clear removes all cache entries and leftover temp files from the store.
// Files that are not cache entries are left alone.
func (s *FileStore) Clear() error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != cacheFileExtension && ext != tempFileExtension {
			continue
		}

		removeErr := os.Remove(filepath.Join(s.directory, entry.Name()))
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove cache file %s: %w", entry.Name(), removeErr))
		}
	}

	return errors.Join(errs...)
}

// EntryInfo describes a cache entry for operator inspection.
type EntryInfo struct {
	Key       string
	Operation string
	Label     string
	CreatedAt time.Time
	Age       time.Duration
	ExpiresIn time.Duration
	Expired   bool
	Corrupt   bool
	SizeBytes int64
	Path      string
}

// List enumerates cache entries ordered by creation time, newest first.
// Only the header line of each file is read. Entries whose header cannot be
// parsed are reported with Corrupt set rather than failing the listing.
func (s *FileStore) List() ([]EntryInfo, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	now := s.now()
	infos := make([]EntryInfo, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}

		info, ok := s.describe(dirEntry, now)
		if !ok {
			continue
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].Key < infos[j].Key
	})

	return infos, nil
}

// describe builds an EntryInfo from a directory entry. It returns false when
// the file vanished between ReadDir and Open.
func (s *FileStore) describe(dirEntry fs.DirEntry, now time.Time) (EntryInfo, bool) {
	path := filepath.Join(s.directory, dirEntry.Name())
	info := EntryInfo{
		Key:  strings.TrimSuffix(dirEntry.Name(), cacheFileExtension),
		Path: path,
	}

	if fi, statErr := dirEntry.Info(); statErr == nil {
		info.SizeBytes = fi.Size()
	} else if errors.Is(statErr, fs.ErrNotExist) {
		return EntryInfo{}, false
	}

	f, err := os.Open(path) //nolint:gosec // path is built from the cache directory listing
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EntryInfo{}, false
		}
		info.Corrupt = true
		return info, true
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		info.Corrupt = true
		return info, true
	}

	info.Key = header.Key
	info.Operation = header.Operation
	info.Label = header.Label
	info.CreatedAt = header.CreatedAt
	info.Age = now.Sub(header.CreatedAt)
	info.Expired = header.IsExpired(now, s.ttl)
	if !info.Expired {
		info.ExpiresIn = s.ttl - info.Age
	}
	return info, true
}

// CleanupExpired removes all expired or corrupt cache entries.
func (s *FileStore) CleanupExpired() (int, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, info := range infos {
		if !info.Expired && !info.Corrupt {
			continue
		}
		if removeErr := os.Remove(info.Path); removeErr == nil {
			removed++
		}
	}

	return removed, nil
}

// Size returns the total size of the cache in bytes.
func (s *FileStore) Size() (int64, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, info := range infos {
		total += info.SizeBytes
	}
	return total, nil
}

// Count returns the number of cache entries (including expired ones).
func (s *FileStore) Count() (int, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(infos), nil
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// GetDirectory returns the cache directory path.
func (s *FileStore) GetDirectory() string {
	return s.directory
}

// GetTTL returns the TTL applied to reads.
func (s *FileStore) GetTTL() time.Duration {
	return s.ttl
}

// keyToFilePath converts a cache key to a file path.
// The key is sanitized to ensure filesystem safety.
func (s *FileStore) keyToFilePath(key string) string {
	safeKey := strings.ReplaceAll(key, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, ":", "_")
	return filepath.Join(s.directory, safeKey+cacheFileExtension)
}
