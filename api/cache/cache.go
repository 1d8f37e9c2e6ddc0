package cache

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ka2n/jobharvest/log"
)

// DefaultTTL is the default time-to-live for cached entries
var DefaultTTL = time.Hour

// Entry represents a cached item
type Entry[T any] struct {
	Value     T
	CreatedAt time.Time
}

// Cache stores gob-encoded values as files under dir/namespace
type Cache[T any] struct {
	dir string
	ttl time.Duration
}

// DefaultDir returns the user cache directory for jobharvest,
// falling back to the system temp dir
func DefaultDir() string {
	cacheHome, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "jobharvest")
	}
	return filepath.Join(cacheHome, "jobharvest")
}

// New creates a cache rooted at dir/namespace. A non-positive ttl uses DefaultTTL.
func New[T any](dir, namespace string, ttl time.Duration) (*Cache[T], error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[T]{ttl: ttl}
	if err := c.SetDir(filepath.Join(dir, normalizeKey(namespace))); err != nil {
		return nil, err
	}
	return c, nil
}

// normalizeKey converts a cache key into a filesystem-safe format
func normalizeKey(key string) string {
	// Replace any character that's not allowed with underscore
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == '/' {
			return r
		}
		return '_'
	}, key)

	// Replace consecutive dots with a single dot
	for strings.Contains(normalized, "..") {
		normalized = strings.ReplaceAll(normalized, "..", ".")
	}

	// Replace consecutive slashes with a single slash
	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}

	return strings.Trim(normalized, "/")
}

// GetOrSet retrieves a value from cache or stores the result of fn if it doesn't exist.
// Values are only stored when fn succeeds; a failed save is logged and the value still returned.
func (c *Cache[T]) GetOrSet(key string, fn func() (T, error), forceUpdate bool) (T, error) {
	path := filepath.Join(c.dir, normalizeKey(key)+".gob")

	if !forceUpdate {
		if entry, err := c.loadEntry(path); err == nil {
			if time.Since(entry.CreatedAt) < c.ttl {
				log.Debug("cache hit", "key", key)
				return entry.Value, nil
			}
		}
	}

	value, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}

	entry := Entry[T]{
		Value:     value,
		CreatedAt: time.Now(),
	}
	if err := c.saveEntry(path, entry); err != nil {
		log.Warn("failed to save cache entry", "key", key, "error", err)
	}

	return value, nil
}

func (c *Cache[T]) loadEntry(path string) (*Entry[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry Entry[T]
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (c *Cache[T]) saveEntry(path string, entry Entry[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Clear removes all cached entries
func (c *Cache[T]) Clear() error {
	return os.RemoveAll(c.dir)
}

// SetTTL updates the cache TTL
func (c *Cache[T]) SetTTL(d time.Duration) {
	c.ttl = d
}

// SetDir updates the cache directory
func (c *Cache[T]) SetDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	c.dir = dir
	return nil
}
