// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperscout/pkg/types"
)

// FetchMeta records how a fetch concluded: which query variant produced the
// result set, the tagged error trail of failed attempts, and whether the
// local fallback cache was used.
type FetchMeta struct {
	Source    string   `json:"source" yaml:"source"`
	Errors    []string `json:"errors" yaml:"errors,omitempty"`
	UsedCache bool     `json:"used_cache" yaml:"used_cache"`
}

// attemptPause is the short delay between failed fetch attempts. Tests
// override this to avoid real sleeps.
var attemptPause = 150 * time.Millisecond

// Timeout budgets in seconds, tried in order per query variant. The strict
// variant gets one extra, longer budget because its query is the one worth
// waiting for.
var (
	strictBudgets   = []int{20, 30, 45}
	fallbackBudgets = []int{20, 35}
)

// Variant labels, surfaced in FetchMeta.Source and the error trail.
const (
	sourceStrict   = "strict_2c2k"
	sourceFallback = "fallback_1c1k"
	sourceCache    = "cache"
	sourceNone     = "none"
)

type fetchVariant struct {
	label   string
	query   string
	count   int
	budgets []int
}

// FetchResilient attempts a strict two-category/two-keyword query, then a
// degraded one-category/one-keyword fallback, each across its timeout
// budgets. Every attempt issues a relevance-sorted and a recency-sorted
// sub-query (roughly 70/30 of the requested count) and merges them with
// identity-key dedup. The first attempt yielding a non-empty merged set
// wins immediately; exhausting all attempts returns an empty list with the
// full error trail.
func (c *Client) FetchResilient(ctx context.Context, categories, keywords []string, fetchCount int) ([]types.Paper, FetchMeta) {
	var errors []string

	strictCats := categories
	if len(strictCats) == 0 {
		strictCats = []string{"cs.AI"}
	}
	if len(strictCats) > 2 {
		strictCats = strictCats[:2]
	}
	strictKws := keywords
	if len(strictKws) == 0 {
		strictKws = []string{"machine learning"}
	}
	if len(strictKws) > 2 {
		strictKws = strictKws[:2]
	}

	variants := []fetchVariant{
		{sourceStrict, BuildQuery(strictCats, strictKws), fetchCount, strictBudgets},
		{sourceFallback, BuildQuery(strictCats[:1], strictKws[:1]), max(fetchCount, 20), fallbackBudgets},
	}

	for _, v := range variants {
		if v.query == "" {
			continue
		}
		for _, budget := range v.budgets {
			papers, err := c.fetchAttempt(ctx, v.query, v.count, budget)
			if err != nil {
				errors = append(errors, fmt.Sprintf("%s:t%d:%v", v.label, budget, err))
				time.Sleep(attemptPause)
				continue
			}
			if len(papers) == 0 {
				errors = append(errors, v.label+":empty")
				continue
			}
			return papers, FetchMeta{Source: v.label, Errors: errors}
		}
	}

	return nil, FetchMeta{Source: sourceNone, Errors: errors}
}

// fetchAttempt issues the relevance and recency sub-queries concurrently
// under one timeout budget and merges them, relevance hits first. The two
// calls are independent read-only requests, so running them in parallel
// does not change observable behavior.
func (c *Client) fetchAttempt(ctx context.Context, query string, count, budgetSec int) ([]types.Paper, error) {
	relevanceCount := max(1, count*7/10)
	recencyCount := max(1, count-relevanceCount)
	timeout := time.Duration(budgetSec) * time.Second

	var relevance, recency []types.Paper
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		relevance, err = c.Search(gctx, query, types.ClampInt(relevanceCount, 5, 300), SortRelevance, timeout)
		return err
	})
	g.Go(func() error {
		var err error
		recency, err = c.Search(gctx, query, types.ClampInt(recencyCount, 3, 300), SortRecency, timeout)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeUnique(relevance, recency), nil
}

// Fetch runs the resilient fetch and layers the local cache on top: a
// successful live fetch refreshes the cache, an empty one falls back to
// cached papers when they have not expired. Callers surface a user-visible
// warning when UsedCache is set.
func (c *Client) Fetch(ctx context.Context, categories, keywords []string, fetchCount int, cache FetchCache, maxAge time.Duration) ([]types.Paper, FetchMeta) {
	papers, meta := c.FetchResilient(ctx, categories, keywords, fetchCount)
	if len(papers) > 0 {
		cache.Save(papers)
		return papers, meta
	}

	if cached := cache.Load(maxAge); len(cached) > 0 {
		meta.Source = sourceCache
		meta.UsedCache = true
		return cached, meta
	}
	return papers, meta
}

// mergeUnique concatenates groups keeping the first occurrence of each
// identity key; records with no key are dropped.
func mergeUnique(groups ...[]types.Paper) []types.Paper {
	var out []types.Paper
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, p := range group {
			key := p.IdentityKey()
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
