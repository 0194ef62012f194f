package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/xschemadev/gerrit-dash/logger"
)

// responseCache keeps API responses for the lifetime of a client and,
// when a directory is configured, on disk between runs
type responseCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	fs  afero.Fs
	dir string
	ttl time.Duration
}

func newResponseCache(fs afero.Fs, dir string, ttl time.Duration) *responseCache {
	return &responseCache{
		items: make(map[string][]byte),
		fs:    fs,
		dir:   dir,
		ttl:   ttl,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}

	if c.dir == "" {
		return nil, false
	}

	path := c.path(key)
	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		logger.Debug("cache entry expired", "key", key)
		return nil, false
	}
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.items[key] = data
	c.mu.Unlock()
	return data, true
}

func (c *responseCache) set(key string, val []byte) {
	c.mu.Lock()
	c.items[key] = val
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		logger.Warn("cannot create cache directory", "dir", c.dir, "error", err)
		return
	}
	if err := afero.WriteFile(c.fs, c.path(key), val, 0644); err != nil {
		logger.Warn("cannot write cache entry", "key", key, "error", err)
	}
}

func (c *responseCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
