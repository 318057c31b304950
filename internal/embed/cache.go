// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// modelCacheSize bounds how many loaded model handles are kept alive.
// Embedding models are heavy; two covers the common switch-and-back case
// without letting memory grow with every distinct model name.
const modelCacheSize = 2

// ModelCache is a process-wide, fixed-capacity cache of loaded embedders
// keyed by model name. The surrounding application runs one fetch pipeline
// at a time; the underlying LRU is nonetheless safe for concurrent use.
type ModelCache struct {
	cache *lru.Cache[string, Embedder]
}

// NewModelCache returns an empty capacity-2 cache.
func NewModelCache() *ModelCache {
	c, _ := lru.New[string, Embedder](modelCacheSize)
	return &ModelCache{cache: c}
}

// GetOrLoad returns the cached embedder for name, or calls load and caches
// the result, evicting the least recently used entry when a third distinct
// model is requested. Load failures are not cached.
func (c *ModelCache) GetOrLoad(name string, load func() (Embedder, error)) (Embedder, error) {
	if e, ok := c.cache.Get(name); ok {
		return e, nil
	}
	e, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, e)
	return e, nil
}

// Len reports how many models are currently cached.
func (c *ModelCache) Len() int { return c.cache.Len() }
