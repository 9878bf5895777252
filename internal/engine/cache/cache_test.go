package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttlSeconds int) (*FileStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"), true, ttlSeconds, WithClock(clock.Now))
	require.NoError(t, err)
	return store, clock
}

func TestGenerateKey(t *testing.T) {
	base := KeyParams{
		Operation:    "list_flags",
		Project:      "web",
		Environments: []string{"production", "staging"},
		Params:       map[string]string{"base_url": "https://app.launchdarkly.com", "path": "/api/v2/flags/web"},
	}

	key1, err := GenerateKey(base)
	require.NoError(t, err)
	assert.Len(t, key1, 64)

	t.Run("environment order does not matter", func(t *testing.T) {
		p := base
		p.Environments = []string{"staging", "production"}
		key2, err := GenerateKey(p)
		require.NoError(t, err)
		assert.Equal(t, key1, key2)
	})

	t.Run("duplicates and whitespace are normalized", func(t *testing.T) {
		p := base
		p.Operation = " LIST_FLAGS "
		p.Environments = []string{" staging", "production", "staging", ""}
		key2, err := GenerateKey(p)
		require.NoError(t, err)
		assert.Equal(t, key1, key2)
	})

	t.Run("param map order does not matter", func(t *testing.T) {
		p := base
		p.Params = map[string]string{"path": "/api/v2/flags/web", "base_url": "https://app.launchdarkly.com"}
		key2, err := GenerateKey(p)
		require.NoError(t, err)
		assert.Equal(t, key1, key2)
	})

	differing := []struct {
		name   string
		mutate func(*KeyParams)
	}{
		{"project", func(p *KeyParams) { p.Project = "mobile" }},
		{"environment set", func(p *KeyParams) { p.Environments = []string{"production"} }},
		{"operation", func(p *KeyParams) { p.Operation = "get_flag" }},
		{"param value", func(p *KeyParams) {
			p.Params = map[string]string{"base_url": "https://eu.launchdarkly.com", "path": "/api/v2/flags/web"}
		}},
	}
	for _, tt := range differing {
		t.Run("differs by "+tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			key2, err := GenerateKey(p)
			require.NoError(t, err)
			assert.NotEqual(t, key1, key2)
		})
	}

	t.Run("missing operation", func(t *testing.T) {
		_, err := GenerateKey(KeyParams{Project: "web"})
		assert.ErrorIs(t, err, ErrInvalidKeyParams)
	})

	t.Run("Builder", func(t *testing.T) {
		k, err := NewKeyParamsBuilder("list_flags", "web").
			WithEnvironments("staging", "production").
			WithParam("path", "/api/v2/flags/web").
			WithParam("base_url", "https://app.launchdarkly.com").
			Build()
		require.NoError(t, err)
		assert.Equal(t, key1, k)
	})
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t, 60)
	data := json.RawMessage(`[{"key":"new-checkout","environments":{"production":{"on":true}}}]`)

	require.NoError(t, store.Put("k1", Metadata{Operation: "list_flags", Label: "web"}, data))

	entry, err := store.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(entry.Data))
	assert.Equal(t, "web", entry.Label)
	assert.Equal(t, "list_flags", entry.Operation)

	payload, ok := store.Lookup(context.Background(), "k1")
	require.True(t, ok)
	assert.Equal(t, []byte(data), []byte(payload))
}

func TestFileStore_TTLBoundary(t *testing.T) {
	store, clock := newTestStore(t, 60)
	require.NoError(t, store.Put("k", Metadata{}, json.RawMessage(`{}`)))

	clock.Advance(60*time.Second - time.Millisecond)
	_, err := store.Get("k")
	require.NoError(t, err, "entry must be served just before the TTL")

	clock.Advance(2 * time.Millisecond)
	_, err = store.Get("k")
	assert.ErrorIs(t, err, ErrCacheExpired)

	_, ok := store.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

func TestFileStore_ZeroTTLAlwaysMisses(t *testing.T) {
	store, _ := newTestStore(t, 0)
	require.NoError(t, store.Put("k", Metadata{}, json.RawMessage(`{}`)))

	_, err := store.Get("k")
	assert.ErrorIs(t, err, ErrCacheExpired)
}

func TestFileStore_Overwrite(t *testing.T) {
	store, clock := newTestStore(t, 60)
	require.NoError(t, store.Put("k", Metadata{}, json.RawMessage(`{"v":1}`)))

	clock.Advance(59 * time.Second)
	require.NoError(t, store.Put("k", Metadata{}, json.RawMessage(`{"v":2}`)))

	// The rewrite resets the entry's age.
	clock.Advance(30 * time.Second)
	entry, err := store.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(entry.Data))
}

func TestFileStore_CorruptEntriesAreMisses(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"not json", "garbage"},
		{"header without payload terminator", `{"v":1,"key":"k","created_at":"2026-03-01T12:00:00Z","size":2}`},
		{"truncated payload", "{\"v\":1,\"key\":\"k\",\"created_at\":\"2026-03-01T12:00:00Z\",\"size\":20,\"sha256\":\"00\"}\n{\"a\""},
		{"checksum mismatch", "{\"v\":1,\"key\":\"k\",\"created_at\":\"2026-03-01T12:00:00Z\",\"size\":2,\"sha256\":\"00\"}\n{}"},
		{"legacy format", `{"timestamp": 1700000000, "data": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, 60)
			require.NoError(t, os.WriteFile(store.keyToFilePath("k"), []byte(tt.content), 0600))

			_, err := store.Get("k")
			assert.ErrorIs(t, err, ErrCacheCorrupt)

			payload, ok := store.Lookup(context.Background(), "k")
			assert.False(t, ok)
			assert.Nil(t, payload)
		})
	}
}

func TestFileStore_KeyMismatchIsCorrupt(t *testing.T) {
	store, _ := newTestStore(t, 60)
	require.NoError(t, store.Put("a", Metadata{}, json.RawMessage(`{}`)))
	require.NoError(t, os.Rename(store.keyToFilePath("a"), store.keyToFilePath("b")))

	_, err := store.Get("b")
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	store, _ := newTestStore(t, 60)
	for i := range 5 {
		require.NoError(t, store.Put(fmt.Sprintf("k%d", i), Metadata{}, json.RawMessage(`{}`)))
	}

	matches, err := filepath.Glob(filepath.Join(store.GetDirectory(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStore_ConcurrentWritersSameKey(t *testing.T) {
	store, _ := newTestStore(t, 60)
	payload := json.RawMessage(`{"items":[1,2,3]}`)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put("shared", Metadata{Label: "web"}, payload))
		}()
	}
	wg.Wait()

	entry, err := store.Get("shared")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(entry.Data))
}

func TestFileStore_SeparateStoresShareDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	payload := json.RawMessage(`{"items":[{"key":"old-checkout"},{"key":"new-banner"}]}`)

	const stores = 8
	const rounds = 100
	var corrupt atomic.Int32
	var wg sync.WaitGroup
	for range stores {
		store, err := NewFileStore(dir, true, 60)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				assert.NoError(t, store.Put("shared", Metadata{Label: "web"}, payload))
				entry, err := store.Get("shared")
				if errors.Is(err, ErrCacheCorrupt) {
					corrupt.Add(1)
					continue
				}
				if assert.NoError(t, err) {
					assert.JSONEq(t, string(payload), string(entry.Data))
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, corrupt.Load(), "readers never observe a partial entry")
	reader, err := NewFileStore(dir, true, 60)
	require.NoError(t, err)
	n, err := reader.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileStore_ListClearAndCleanup(t *testing.T) {
	store, clock := newTestStore(t, 60)
	data := json.RawMessage(`{"hello":"world"}`)

	require.NoError(t, store.Put("old", Metadata{Operation: "list_flags", Label: "web"}, data))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Put("new", Metadata{Operation: "list_flags", Label: "mobile"}, data))
	require.NoError(t, os.WriteFile(filepath.Join(store.GetDirectory(), "broken.json"), []byte("nope"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.GetDirectory(), "notes.txt"), []byte("keep"), 0600))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, "new", infos[0].Key)
	assert.Equal(t, "mobile", infos[0].Label)
	assert.False(t, infos[0].Expired)
	assert.Equal(t, 60*time.Second, infos[0].ExpiresIn)
	assert.Positive(t, infos[0].SizeBytes)

	assert.Equal(t, "old", infos[1].Key)
	assert.True(t, infos[1].Expired)
	assert.Equal(t, 2*time.Minute, infos[1].Age)

	assert.True(t, infos[2].Corrupt)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Positive(t, size)

	removed, err := store.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, store.Clear())
	count, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = os.Stat(filepath.Join(store.GetDirectory(), "notes.txt"))
	require.NoError(t, err, "non-cache files must survive Clear")
}

func TestFileStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, 60)
	require.NoError(t, store.Put("k", Metadata{}, json.RawMessage(`{}`)))

	require.NoError(t, store.Delete("k"))
	_, err := store.Get("k")
	assert.ErrorIs(t, err, ErrCacheNotFound)

	// Idempotent.
	require.NoError(t, store.Delete("k"))
}

func TestFileStore_Disabled(t *testing.T) {
	store, err := NewFileStore("", false, 60)
	require.NoError(t, err)
	assert.False(t, store.IsEnabled())

	assert.ErrorIs(t, store.Put("k", Metadata{}, json.RawMessage(`{}`)), ErrCacheDisabled)
	_, err = store.Get("k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	_, ok := store.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := NewFileStore("", true, 60)
	require.Error(t, err)

	_, err = NewFileStore(t.TempDir(), true, -1)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestInvalidKey(t *testing.T) {
	store, _ := newTestStore(t, 60)
	assert.ErrorIs(t, store.Put("", Metadata{}, json.RawMessage(`{}`)), ErrInvalidCacheKey)
	_, err := store.Get("")
	assert.ErrorIs(t, err, ErrInvalidCacheKey)
}

func TestMode(t *testing.T) {
	assert.Equal(t, ModeDefault, ModeFromFlags(false, false))
	assert.Equal(t, ModeNoCache, ModeFromFlags(true, false))
	assert.Equal(t, ModeOverride, ModeFromFlags(false, true))
	assert.Equal(t, ModeOverride, ModeFromFlags(true, true))

	assert.True(t, ModeDefault.ReadAllowed())
	assert.False(t, ModeNoCache.ReadAllowed())
	assert.False(t, ModeOverride.ReadAllowed())
	assert.True(t, ModeNoCache.WriteAllowed())
	assert.Equal(t, "override", ModeOverride.String())
}

func TestTTLHelpers(t *testing.T) {
	t.Run("FormatDuration", func(t *testing.T) {
		assert.Equal(t, "30s", FormatDuration(30*time.Second))
		assert.Equal(t, "5m", FormatDuration(5*time.Minute))
		assert.Equal(t, "2h", FormatDuration(2*time.Hour))
		assert.Equal(t, "2h30m", FormatDuration(2*time.Hour+30*time.Minute))
		assert.Equal(t, "3d", FormatDuration(72*time.Hour))
		assert.Equal(t, "3d2h", FormatDuration(74*time.Hour))
	})

	t.Run("ParseTTL", func(t *testing.T) {
		ttl, err := ParseTTL("3600")
		require.NoError(t, err)
		assert.Equal(t, 3600, ttl)

		ttl, err = ParseTTL("1h")
		require.NoError(t, err)
		assert.Equal(t, 3600, ttl)

		ttl, err = ParseTTL("0")
		require.NoError(t, err)
		assert.Equal(t, 0, ttl)

		_, err = ParseTTL("-5")
		assert.ErrorIs(t, err, ErrInvalidTTL)

		_, err = ParseTTL("invalid")
		assert.Error(t, err)
	})
}
