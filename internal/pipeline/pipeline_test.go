// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/internal/arxiv"
	"github.com/pdiddy/paperscout/internal/embed"
	"github.com/pdiddy/paperscout/internal/httputil"
	"github.com/pdiddy/paperscout/internal/rank"
	"github.com/pdiddy/paperscout/internal/store"
	"github.com/pdiddy/paperscout/pkg/types"
)

func init() {
	// Tests must not sleep during retry backoff.
	httputil.RetryBaseDelay = 0
}

// rewriteTransport sends every outbound request to the test server,
// regardless of the configured endpoint hosts.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(rt.target)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(req)
}

// quantumEmbedder is a deterministic embedder: texts mentioning "quantum"
// map to one axis, everything else to the other.
type quantumEmbedder struct {
	model string
}

func (q quantumEmbedder) ModelName() string { return q.model }

func (q quantumEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "quantum") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func atomFixture() string {
	entry := func(n int, title, summary string) string {
		return fmt.Sprintf(`<entry>
			<id>http://arxiv.org/abs/2401.0000%dv1</id>
			<title>%s</title>
			<summary>%s</summary>
			<published>2024-01-0%dT00:00:00Z</published>
			<author><name>Author %d</name></author>
			<category term="quant-ph"/>
			<link href="http://arxiv.org/abs/2401.0000%dv1" rel="alternate"/>
		</entry>`, n, title, summary, n, n, n)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
		<feed xmlns="http://www.w3.org/2005/Atom">` +
		entry(1, "Quantum error correction codes", "Surface codes for quantum error correction.") +
		entry(2, "Deep learning optimizers", "A survey of gradient descent variants.") +
		entry(3, "Quantum annealing methods", "Annealing schedules for quantum hardware.") +
		`</feed>`
}

// happyServer answers arXiv queries with the three-entry fixture and
// citation batches with a constant count.
func happyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, atomFixture())
	})
	mux.HandleFunc("/graph/v1/paper/batch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"citationCount":7},{"citationCount":7},{"citationCount":7}]`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testPipeline(t *testing.T, ts *httptest.Server) *Pipeline {
	t.Helper()
	cfg := types.PipelineConfig{}
	cfg.Fetch.DataDir = t.TempDir()
	cfg.Fetch.UserAgent = "paperscout-test"
	cfg.Embed.Model = "nomic-embed-text"

	p := New(cfg, io.Discard)
	p.Client.HTTP = &http.Client{Transport: rewriteTransport{target: ts.URL}}
	p.Ranker = rank.NewFineRankerWithLoader(func(_ context.Context, model string) (embed.Embedder, error) {
		return quantumEmbedder{model: model}, nil
	})
	return p
}

func TestExecuteHappyPath(t *testing.T) {
	ts := happyServer(t)
	p := testPipeline(t, ts)

	req := types.Request{Categories: []string{"quant-ph"}, Keywords: []string{"quantum"}}
	res := p.Execute(context.Background(), req, "quantum computing")

	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.TotalFetched)
	assert.Equal(t, 3, res.SelectedCount)
	require.Len(t, res.Papers, 3)

	// The two quantum papers outrank the off-topic one.
	assert.Contains(t, res.Papers[0].Title, "Quantum")
	assert.Contains(t, res.Papers[1].Title, "Quantum")
	assert.Equal(t, "Deep learning optimizers", res.Papers[2].Title)

	for _, paper := range res.Papers {
		require.NotNil(t, paper.CitationCount, "paper %s", paper.ID)
		assert.Equal(t, 7, *paper.CitationCount)
	}

	m := res.Metadata
	assert.Equal(t, []string{"quant-ph"}, m.Categories)
	assert.Equal(t, []string{"quantum"}, m.Keywords)
	assert.Equal(t, "quantum computing", m.SemanticQuery)
	assert.Equal(t, 5, m.TargetCount)
	assert.Equal(t, 20, m.MaxResults)
	assert.Equal(t, 30, m.CoarseTargetCount)
	assert.Equal(t, 80, m.FetchCount)
	assert.Equal(t, "strict_2c2k", m.FetchSource)
	assert.Empty(t, m.FetchErrors)
	assert.Equal(t, "coarse=bm25; fine=semantic(nomic-embed-text); compare=rank-order", m.CompareAlgorithm)
	assert.Equal(t, "nomic-embed-text", m.EmbeddingModel)
}

func TestExecuteEmptyQueryUsesKeywords(t *testing.T) {
	ts := happyServer(t)
	p := testPipeline(t, ts)

	req := types.Request{Keywords: []string{"quantum", "annealing"}}
	res := p.Execute(context.Background(), req, "  ")

	assert.Equal(t, "quantum annealing", res.Query)
	assert.Equal(t, "quantum annealing", res.Metadata.SemanticQuery)
}

func TestExecuteFallsBackToCache(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := testPipeline(t, ts)
	arxiv.FetchCache{Dir: p.Config.Fetch.DataDir}.Save([]types.Paper{
		{ID: "http://arxiv.org/abs/2401.00001v1", Title: "Quantum cached paper", Summary: "quantum"},
		{ID: "http://arxiv.org/abs/2401.00002v1", Title: "Another cached paper", Summary: "misc"},
	})
	// Citation enrichment also hits the failing server; let the loader fail
	// too so the fine stage exercises the BM25 fallback.
	p.Ranker = rank.NewFineRankerWithLoader(func(_ context.Context, _ string) (embed.Embedder, error) {
		return nil, errors.New("ollama unreachable")
	})

	res := p.Execute(context.Background(), types.Request{Keywords: []string{"quantum"}}, "quantum")

	assert.Contains(t, res.Errors["arxiv_fetch"], "cached")
	assert.Equal(t, "cache", res.Metadata.FetchSource)
	assert.Equal(t, 2, res.TotalFetched)
	assert.Len(t, res.Papers, 2)
	assert.Contains(t, res.Metadata.CompareAlgorithm, "bm25-fallback")
	// Enrichment against the dead server is recorded, not fatal.
	assert.Contains(t, res.Errors, "citation_enrich")
}

func TestExecuteEverythingFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := testPipeline(t, ts)
	res := p.Execute(context.Background(), types.Request{}, "quantum")

	assert.NotNil(t, res.Papers)
	assert.Empty(t, res.Papers)
	assert.Equal(t, 0, res.SelectedCount)
	assert.Equal(t, "none", res.Metadata.FetchSource)
	assert.Contains(t, res.Errors["arxiv_fetch"], "no papers fetched")
	assert.NotEmpty(t, res.Metadata.FetchErrors)
}

type failComparer struct{}

func (failComparer) Compare(context.Context, string, []types.Paper, int) ([]types.Paper, error) {
	return nil, errors.New("llm offline")
}

func (failComparer) Name() string { return "llm" }

func TestExecuteComparerFailureKeepsRankedSelection(t *testing.T) {
	ts := happyServer(t)
	p := testPipeline(t, ts)
	p.Comparer = failComparer{}

	res := p.Execute(context.Background(), types.Request{Keywords: []string{"quantum"}}, "quantum")

	assert.Equal(t, "llm offline", res.Errors["arxiv_compare"])
	// The ranked selection survives, truncated to the target count.
	assert.Len(t, res.Papers, 3)
	assert.Contains(t, res.Metadata.CompareAlgorithm, "compare=llm")
}

func TestExecuteRecordsRun(t *testing.T) {
	ts := happyServer(t)
	p := testPipeline(t, ts)

	s, err := store.Open(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()
	p.Store = s

	res := p.Execute(context.Background(), types.Request{Keywords: []string{"quantum"}}, "quantum computing")
	require.NotContains(t, res.Errors, "run_record")

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "quantum computing", runs[0].Query)
	assert.Equal(t, 3, runs[0].SelectedCount)

	detail, err := s.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, detail.Papers, 3)
	assert.Contains(t, detail.Metadata, `"target_count":5`)
}

func TestRankOrderComparer(t *testing.T) {
	papers := []types.Paper{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got, err := RankOrderComparer{}.Compare(context.Background(), "q", papers, 2)
	require.NoError(t, err)
	assert.Equal(t, []types.Paper{{ID: "a"}, {ID: "b"}}, got)

	got, err = RankOrderComparer{}.Compare(context.Background(), "q", papers, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestNewAppliesFetchHTTPSettings(t *testing.T) {
	var cfg types.PipelineConfig
	cfg.Fetch.Timeout = 7 * time.Second
	cfg.Fetch.UserAgent = "paperscout-test/9.9"

	p := New(cfg, io.Discard)

	assert.Equal(t, 7*time.Second, p.Client.HTTP.Timeout)
	assert.Equal(t, "paperscout-test/9.9", p.Client.UserAgent)
}
