// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/pkg/types"
)

func TestFetchResilientFirstAttemptWins(t *testing.T) {
	feed := atomXML(feedEntry{
		id:    "http://arxiv.org/abs/2301.00001v1",
		title: "Paper One",
	})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	papers, meta := testClient(ts).FetchResilient(context.Background(),
		[]string{"cs.AI", "cs.LG"}, []string{"transformer"}, 40)

	require.Len(t, papers, 1)
	assert.Equal(t, "strict_2c2k", meta.Source)
	assert.Empty(t, meta.Errors)
	assert.False(t, meta.UsedCache)
}

func TestFetchResilientStrictFailsFallbackSucceeds(t *testing.T) {
	// The strict query carries the second category; fail it and serve
	// the degraded one-category/one-keyword query.
	feed := atomXML(feedEntry{
		id:    "http://arxiv.org/abs/2301.00002v1",
		title: "Fallback Paper",
	})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("search_query"), "cs.LG") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, feed)
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	papers, meta := testClient(ts).FetchResilient(context.Background(),
		[]string{"cs.AI", "cs.LG"}, []string{"transformer", "attention"}, 40)

	require.Len(t, papers, 1)
	assert.Equal(t, "fallback_1c1k", meta.Source)
	require.Len(t, meta.Errors, 3)
	for i, budget := range []int{20, 30, 45} {
		assert.True(t, strings.HasPrefix(meta.Errors[i], fmt.Sprintf("strict_2c2k:t%d:", budget)),
			"error %d = %q", i, meta.Errors[i])
	}
}

func TestFetchResilientAllEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, atomXML())
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	papers, meta := testClient(ts).FetchResilient(context.Background(),
		[]string{"cs.AI"}, []string{"transformer"}, 40)

	assert.Empty(t, papers)
	assert.Equal(t, "none", meta.Source)
	// Three strict budgets plus two fallback budgets, each empty.
	assert.Equal(t, []string{
		"strict_2c2k:empty", "strict_2c2k:empty", "strict_2c2k:empty",
		"fallback_1c1k:empty", "fallback_1c1k:empty",
	}, meta.Errors)
}

func TestFetchResilientMergesSubQueries(t *testing.T) {
	relevanceFeed := atomXML(
		feedEntry{id: "http://arxiv.org/abs/1", title: "A"},
		feedEntry{id: "http://arxiv.org/abs/2", title: "B"},
	)
	recencyFeed := atomXML(
		feedEntry{id: "http://arxiv.org/abs/2", title: "B"},
		feedEntry{id: "http://arxiv.org/abs/3", title: "C"},
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sortBy") == SortRecency {
			fmt.Fprint(w, recencyFeed)
			return
		}
		fmt.Fprint(w, relevanceFeed)
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	papers, meta := testClient(ts).FetchResilient(context.Background(),
		[]string{"cs.AI"}, []string{"transformer"}, 40)

	assert.Equal(t, "strict_2c2k", meta.Source)
	require.Len(t, papers, 3)
	// Relevance hits come first, recency-only papers are appended.
	assert.Equal(t, "A", papers[0].Title)
	assert.Equal(t, "B", papers[1].Title)
	assert.Equal(t, "C", papers[2].Title)
}

func TestFetchFallsBackToCache(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	cache := FetchCache{Dir: t.TempDir()}
	cached := []types.Paper{{ID: "http://arxiv.org/abs/9", Title: "Cached"}}
	cache.Save(cached)

	papers, meta := testClient(ts).Fetch(context.Background(),
		[]string{"cs.AI"}, []string{"transformer"}, 40, cache, 24*time.Hour)

	require.Len(t, papers, 1)
	assert.Equal(t, "Cached", papers[0].Title)
	assert.True(t, meta.UsedCache)
	assert.Equal(t, "cache", meta.Source)
	assert.NotEmpty(t, meta.Errors)
}

func TestFetchSavesCacheOnSuccess(t *testing.T) {
	feed := atomXML(feedEntry{id: "http://arxiv.org/abs/7", title: "Live"})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer ts.Close()

	orig := apiBase
	apiBase = ts.URL
	defer func() { apiBase = orig }()

	cache := FetchCache{Dir: t.TempDir()}
	_, meta := testClient(ts).Fetch(context.Background(),
		[]string{"cs.AI"}, []string{"transformer"}, 40, cache, 24*time.Hour)

	assert.False(t, meta.UsedCache)
	reloaded := cache.Load(24 * time.Hour)
	require.Len(t, reloaded, 1)
	assert.Equal(t, "Live", reloaded[0].Title)
}

func TestMergeUnique(t *testing.T) {
	a := []types.Paper{
		{ID: "x", Title: "X"},
		{Title: "only title"},
		{}, // no identity key at all: dropped
	}
	b := []types.Paper{
		{ID: "x", Title: "X duplicate"},
		{URL: "http://example.org/y", Title: "Y"},
	}

	merged := mergeUnique(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, "X", merged[0].Title)
	assert.Equal(t, "only title", merged[1].Title)
	assert.Equal(t, "Y", merged[2].Title)
}
