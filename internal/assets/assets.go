// Package assets loads model and motion files from a list of search
// directories and caches their contents.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/mmd-pose/pkg/formats"
)

// ErrNotFound is returned when no search directory holds a file.
var ErrNotFound = errors.New("assets: file not found")

// Manager resolves relative paths against search directories.
type Manager struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager searching dirs in order.
func NewManager(dirs ...string) *Manager {
	m := &Manager{cache: NewCache()}
	for _, d := range dirs {
		m.AddDir(d)
	}
	return m
}

// AddDir appends a search directory. Directories are searched in the order
// they were added.
func (m *Manager) AddDir(dir string) {
	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
}

// Dirs returns the search directories.
func (m *Manager) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.dirs...)
}

// Resolve returns the first existing location of path. Absolute paths are
// returned as-is when they exist.
func (m *Manager) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return path, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, dir := range m.dirs {
		candidate := filepath.Join(dir, path)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", path, ErrNotFound)
}

// Load reads a file, serving repeated requests from the cache.
func (m *Manager) Load(path string) ([]byte, error) {
	if data, ok := m.cache.Get(path); ok {
		return data, nil
	}

	resolved, err := m.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", resolved, err)
	}

	m.cache.Set(path, data)
	return data, nil
}

// LoadModel loads and parses a PMD model.
func (m *Manager) LoadModel(path string) (*formats.PMD, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	pmd, err := formats.ParsePMD(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pmd, nil
}

// LoadMotion loads and parses a VMD motion.
func (m *Manager) LoadMotion(path string) (*formats.VMD, error) {
	data, err := m.Load(path)
	if err != nil {
		return nil, err
	}
	vmd, err := formats.ParseVMD(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return vmd, nil
}

// Cache returns the manager's file cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close drops the search directories and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded files.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
