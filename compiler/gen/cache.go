package gen

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/partialgen/compiler/diag"
)

// Cache memoizes generated files by fingerprint.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// cacheSchema is bumped whenever cacheEntry changes.
const cacheSchema uint16 = 1

// cacheEntry is the cached outcome of synthesizing one type.
type cacheEntry struct {
	Schema      uint16
	Path        string
	Source      []byte
	Fallback    bool
	Diagnostics []diag.Diagnostic
}

func encodeEntry(out *Output, ds []diag.Diagnostic) ([]byte, error) {
	return msgpack.Marshal(&cacheEntry{
		Schema:      cacheSchema,
		Path:        out.Path,
		Source:      out.Source,
		Fallback:    out.Fallback,
		Diagnostics: ds,
	})
}

// decodeEntry decodes a cached entry. Entries of another schema are
// reported as misses.
func decodeEntry(b []byte) (*cacheEntry, bool) {
	var e cacheEntry
	if err := msgpack.Unmarshal(b, &e); err != nil || e.Schema != cacheSchema {
		return nil, false
	}
	return &e, true
}

// MemoryCache is an in-memory Cache. It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// FileCache is a Cache storing one file per key in a directory.
// Writes are atomic. It is safe for concurrent use.
type FileCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenFileCache opens, creating if needed, a file cache in dir.
func OpenFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, NewConfigError("Cache", nil, "cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewGenerationError("cache", dir, "create cache directory", err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) pathFor(key string) (string, error) {
	if _, err := hex.DecodeString(key); err != nil || key == "" {
		return "", errors.Newf("invalid cache key %q", key)
	}
	return filepath.Join(c.dir, key+".mp"), nil
}

// Get implements Cache.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	p, err := c.pathFor(key)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read cache entry %s", key)
	}
	return b, nil
}

// Set implements Cache.
func (c *FileCache) Set(_ context.Context, key string, value []byte) error {
	p, err := c.pathFor(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return errors.Wrap(err, "create cache entry")
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(value); err != nil {
		f.Close()
		return errors.Wrap(err, "write cache entry")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "write cache entry")
	}
	return errors.Wrap(os.Rename(f.Name(), p), "commit cache entry")
}

// Delete implements Cache.
func (c *FileCache) Delete(_ context.Context, key string) error {
	p, err := c.pathFor(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "delete cache entry %s", key)
	}
	return nil
}

// Clear implements Cache.
func (c *FileCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.Wrap(err, "read cache directory")
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Wrapf(err, "remove %s", e.Name())
		}
	}
	return nil
}
