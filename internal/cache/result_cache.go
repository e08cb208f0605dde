// Package cache holds the keyed store for query-result reuse. The cache is
// explicit state with an explicit invalidation rule: entries are keyed by
// plan fingerprint and dropped whenever the owning file's datasets rebuild.
package cache

import (
	"sync"

	"sheetsense/domain/core"
	"sheetsense/domain/query"
)

// ResultCache maps fingerprint -> DataResult, tracking which file each
// entry belongs to so a rebuild can invalidate precisely.
type ResultCache struct {
	mu      sync.RWMutex
	results map[core.Fingerprint]*query.DataResult
	byFile  map[core.FileID][]core.Fingerprint
}

// New creates an empty cache
func New() *ResultCache {
	return &ResultCache{
		results: make(map[core.Fingerprint]*query.DataResult),
		byFile:  make(map[core.FileID][]core.Fingerprint),
	}
}

// Get returns the cached result for a fingerprint, if present
func (c *ResultCache) Get(fp core.Fingerprint) (*query.DataResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[fp]
	return res, ok
}

// Put stores a result under its fingerprint, attributed to a file
func (c *ResultCache) Put(fileID core.FileID, fp core.Fingerprint, res *query.DataResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[fp]; !exists {
		c.byFile[fileID] = append(c.byFile[fileID], fp)
	}
	c.results[fp] = res
}

// InvalidateFile drops every entry attributed to a file. Called whenever
// the file's datasets are rebuilt or the file is deleted.
func (c *ResultCache) InvalidateFile(fileID core.FileID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fp := range c.byFile[fileID] {
		delete(c.results, fp)
	}
	delete(c.byFile, fileID)
}

// Len reports how many results are cached
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
