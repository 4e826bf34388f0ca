package headshape

import (
	"sort"
	"sync"
)

// DecimationCache memoizes decimated point sets per resolution for the
// current source cloud. Entries are computed at most once per resolution;
// replacing the source cloud invalidates everything.
//
// A populated entry is never rewritten, so concurrent reads of it are safe.
// Population of a not-yet-present entry is mutually exclusive per resolution
// key, so a concurrent Warm never duplicates a computation.
type DecimationCache struct {
	mu        sync.Mutex
	decimator Decimator
	source    Cloud
	entries   map[int]*cacheEntry
}

type cacheEntry struct {
	once   sync.Once
	points Cloud
}

// NewDecimationCache creates an empty cache backed by the given decimator.
func NewDecimationCache(d Decimator) *DecimationCache {
	return &DecimationCache{
		decimator: d,
		entries:   make(map[int]*cacheEntry),
	}
}

// SetSource replaces the source cloud and discards every cached entry.
func (c *DecimationCache) SetSource(cloud Cloud) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = cloud
	c.entries = make(map[int]*cacheEntry)
}

// InvalidateAll discards every cached entry while keeping the source cloud.
func (c *DecimationCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int]*cacheEntry)
}

// Get returns the decimated set for the given resolution, computing and
// storing it on first request. Returns ErrNotReady before a source cloud has
// been set.
func (c *DecimationCache) Get(resolutionMM int) (Cloud, error) {
	c.mu.Lock()
	if c.source == nil {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	source := c.source
	entry, ok := c.entries[resolutionMM]
	if !ok {
		entry = &cacheEntry{}
		c.entries[resolutionMM] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.points = c.decimator.Decimate(source, resolutionMM)
	})
	return entry.points, nil
}

// Warm eagerly populates the cache for the given resolutions. It is purely a
// latency optimization: existing entries are untouched and no other state is
// disturbed. The first error encountered is returned.
func (c *DecimationCache) Warm(resolutions []int) error {
	for _, r := range resolutions {
		if _, err := c.Get(r); err != nil {
			return err
		}
	}
	return nil
}

// CachedResolutions returns the resolutions that currently have an entry.
func (c *DecimationCache) CachedResolutions() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.entries))
	for r := range c.entries {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}
