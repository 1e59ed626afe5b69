package raster

import (
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrUnknownGrid is returned when a cache id does not resolve.
var ErrUnknownGrid = eris.New("raster: unknown grid id")

// GridCache holds grids loaded or derived during a session.
//
// Grids are stored under generated ids so that derived grids (subsets,
// classifications, reprojections) can be referenced by later operations
// without a file on disk. Files opened through Load are additionally keyed
// by path so repeated loads skip the decode.
//
// GridCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached grids remain in memory until removed via Evict or Clear.
type GridCache struct {
	mu     sync.RWMutex
	grids  map[string]*Grid
	byPath map[string]string
}

// NewGridCache creates an empty cache.
func NewGridCache() *GridCache {
	return &GridCache{
		grids:  make(map[string]*Grid),
		byPath: make(map[string]string),
	}
}

// Put stores g under a new id and returns the id.
func (c *GridCache) Put(g *Grid) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.grids[id] = g
	c.mu.Unlock()
	return id
}

// Get returns the grid stored under id.
func (c *GridCache) Get(id string) (*Grid, error) {
	c.mu.RLock()
	g, ok := c.grids[id]
	c.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownGrid, "raster: %q", id)
	}
	return g, nil
}

// Load reads the raster at path, or returns the cached grid when the same
// path was loaded before.
//
// Returns the cache id together with the grid. The path string is used as
// given; relative and absolute spellings of one file are cached separately.
func (c *GridCache) Load(path string) (string, *Grid, error) {
	c.mu.RLock()
	if id, ok := c.byPath[path]; ok {
		g := c.grids[id]
		c.mu.RUnlock()
		return id, g, nil
	}
	c.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return "", nil, eris.Wrapf(err, "raster: stat %s", path)
	}
	g, err := Read(path)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.grids[id] = g
	c.byPath[path] = id
	c.mu.Unlock()
	return id, g, nil
}

// IDs returns the stored ids in sorted order.
func (c *GridCache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.grids))
	for id := range c.grids {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of cached grids.
func (c *GridCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.grids)
}

// Clear removes every grid from the cache.
func (c *GridCache) Clear() {
	c.mu.Lock()
	c.grids = make(map[string]*Grid)
	c.byPath = make(map[string]string)
	c.mu.Unlock()
}

// Evict removes the grid stored under id. Unknown ids are ignored.
func (c *GridCache) Evict(id string) {
	c.mu.Lock()
	delete(c.grids, id)
	for p, pid := range c.byPath {
		if pid == id {
			delete(c.byPath, p)
		}
	}
	c.mu.Unlock()
}
