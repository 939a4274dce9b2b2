package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kastheco/monothematic/palette"
)

const seedCacheFile = "seed-cache.json"

// SeedEntry is the extracted seed for one image, valid while the image's
// size and modification time are unchanged.
type SeedEntry struct {
	L       float64   `json:"l"`
	C       float64   `json:"c"`
	H       float64   `json:"h"`
	Method  string    `json:"method"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// SeedCache remembers the dominant color extracted from each wallpaper so an
// unchanged image is not decoded again.
type SeedCache struct {
	mu      sync.RWMutex
	entries map[string]SeedEntry // image path -> seed
	dir     string               // directory to store the cache file
}

// NewSeedCache creates a new cache that persists to the given directory.
func NewSeedCache(dir string) *SeedCache {
	return &SeedCache{
		entries: make(map[string]SeedEntry),
		dir:     dir,
	}
}

// Load reads the cache from disk. Missing file is not an error.
func (c *SeedCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, seedCacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	entries := make(map[string]SeedEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]SeedEntry)
	}
	c.entries = entries
	return nil
}

// Save writes the cache to disk, creating the directory if needed.
func (c *SeedCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, seedCacheFile), append(data, '\n'), 0o644)
}

// Lookup returns the cached seed for path if it was extracted with method
// from a file with the same size and modification time as info.
func (c *SeedCache) Lookup(path string, info os.FileInfo, method string) (palette.Color, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok || e.Method != method || e.Size != info.Size() || !e.ModTime.Equal(info.ModTime()) {
		return palette.Color{}, false
	}
	return palette.New(e.L, e.C, e.H), true
}

// Remember stores the seed extracted from path.
func (c *SeedCache) Remember(path string, info os.FileInfo, method string, seed palette.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = SeedEntry{
		L:       seed.L,
		C:       seed.C,
		H:       seed.H,
		Method:  method,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Forget drops the entry for path.
func (c *SeedCache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
