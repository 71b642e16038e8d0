package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/sousvox/internal/logger"
)

// Cache is a thread-safe two-tier cache (in-memory + filesystem) for
// synthesized audio. Keys are sha256(voice + ":" + text), so changing the
// voice invalidates everything automatically.
//
// The disk layer is always read when a cache directory is configured;
// diskWrite controls only whether new entries are persisted. This gives a
// warm start from previous runs even in read-only mode.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // hash -> WAV bytes
	log       *logger.Logger
	voice     string
	cacheDir  string // empty = no disk layer
	diskWrite bool
}

// NewCache creates an audio cache. An empty cacheDir disables the disk
// layer entirely.
func NewCache(voice, cacheDir string, diskWrite bool, log *logger.Logger) *Cache {
	c := &Cache{
		entries:   make(map[string][]byte),
		log:       log,
		voice:     voice,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: creating cache dir %s: %v", cacheDir, err)
		}
	}

	return c
}

// Get returns cached audio for the text, checking memory first and then
// disk. Disk hits are promoted to memory.
func (c *Cache) Get(text string) ([]byte, bool) {
	key := c.hashKey(text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, err := os.ReadFile(c.diskPath(key)); err == nil {
			c.mu.Lock()
			c.entries[key] = diskData
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %d bytes", len(diskData))
			return diskData, true
		}
	}

	return nil, false
}

// Put stores audio for the text. Always writes to memory; writes to disk
// only when diskWrite is enabled.
func (c *Cache) Put(text string, audio []byte) {
	key := c.hashKey(text)

	c.mu.Lock()
	c.entries[key] = audio
	c.mu.Unlock()

	if c.cacheDir != "" && c.diskWrite {
		path := c.diskPath(key)
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			c.log.Error("cache: disk write failed for %s: %v", path, err)
		}
	}
}

// Has reports whether audio for the text is cached in memory or on disk.
func (c *Cache) Has(text string) bool {
	key := c.hashKey(text)

	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return true
	}

	if c.cacheDir != "" {
		if _, err := os.Stat(c.diskPath(key)); err == nil {
			return true
		}
	}
	return false
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the in-memory tier. The disk tier is untouched.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
}

func (c *Cache) hashKey(text string) string {
	h := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(h[:])
}

func (c *Cache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}
