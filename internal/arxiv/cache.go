// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/paperscout/pkg/types"
)

const (
	cacheFileName   = "arxiv_fallback_cache.json"
	cacheVersion    = 1
	maxCachedPapers = 80

	// DefaultCacheMaxAge is how long cached papers stay usable.
	DefaultCacheMaxAge = 24 * time.Hour
)

// FetchCache persists the most recent successful raw fetch so the pipeline
// survives network outages. The cache is advisory: saves swallow I/O
// failures and loads return an empty list on any problem.
type FetchCache struct {
	// Dir is the application data directory.
	Dir string
}

type cachePayload struct {
	Version int           `json:"version"`
	SavedAt float64       `json:"saved_at"`
	Papers  []types.Paper `json:"papers"`
}

func (c FetchCache) path() string {
	return filepath.Join(c.Dir, cacheFileName)
}

// Save writes up to 80 papers with the current timestamp, overwriting any
// previous cache. Failures are swallowed; the cache is never fatal.
func (c FetchCache) Save(papers []types.Paper) {
	if c.Dir == "" {
		return
	}
	if len(papers) > maxCachedPapers {
		papers = papers[:maxCachedPapers]
	}
	payload := cachePayload{
		Version: cacheVersion,
		SavedAt: float64(time.Now().UnixNano()) / 1e9,
		Papers:  papers,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(c.path(), data, 0o644)
}

// Clear deletes the cache file. It reports whether a file was removed;
// a missing file is not an error.
func (c FetchCache) Clear() (bool, error) {
	if c.Dir == "" {
		return false, nil
	}
	if err := os.Remove(c.path()); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Load returns the cached papers, or an empty list when the file is
// missing, unparseable, or older than maxAge. Never fails.
func (c FetchCache) Load(maxAge time.Duration) []types.Paper {
	if c.Dir == "" {
		return nil
	}
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}

	data, err := os.ReadFile(c.path())
	if err != nil {
		return nil
	}
	var payload cachePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	if payload.SavedAt > 0 {
		saved := time.Unix(0, int64(payload.SavedAt*1e9))
		if time.Since(saved) > maxAge {
			return nil
		}
	}
	return payload.Papers
}
