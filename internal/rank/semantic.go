// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/paperscout/internal/embed"
	"github.com/pdiddy/paperscout/pkg/types"
)

// Backend identifies which algorithm produced a fine ranking.
type Backend string

const (
	// BackendSemantic means embedding cosine similarity was used.
	BackendSemantic Backend = "semantic"

	// BackendBM25Fallback means the coarse BM25 ranker was reused because
	// no embedding model could be obtained.
	BackendBM25Fallback Backend = "bm25-fallback"
)

// Outcome reports the backend a fine ranking actually used, for
// diagnostics. Model is set only for the semantic backend.
type Outcome struct {
	Backend Backend `json:"backend" yaml:"backend"`
	Model   string  `json:"model,omitempty" yaml:"model,omitempty"`
}

// FineRanker re-ranks the coarse candidate pool with sentence embeddings,
// degrading silently to BM25 when the embedding backend is unavailable.
type FineRanker struct {
	models *embed.ModelCache
	load   func(ctx context.Context, model string) (embed.Embedder, error)
}

// NewFineRanker builds a ranker backed by an Ollama server per cfg.
func NewFineRanker(cfg types.EmbedConfig) *FineRanker {
	return &FineRanker{
		models: embed.NewModelCache(),
		load: func(ctx context.Context, model string) (embed.Embedder, error) {
			return embed.NewOllamaEmbedder(ctx, cfg.Host, model, cfg.Timeout)
		},
	}
}

// NewFineRankerWithLoader builds a ranker with a custom embedder loader;
// used by tests and by callers that manage their own embedding transport.
func NewFineRankerWithLoader(load func(ctx context.Context, model string) (embed.Embedder, error)) *FineRanker {
	return &FineRanker{models: embed.NewModelCache(), load: load}
}

// Rank orders papers by cosine similarity between the query embedding and
// each document embedding (title + "\n" + summary), attaching the score as
// SemanticScore. Any failure to load the model or encode falls back to
// RankBM25 on the same pool, so the pipeline never loses its fine stage.
// An empty query is a no-op.
func (r *FineRanker) Rank(ctx context.Context, papers []types.Paper, query, model string) ([]types.Paper, Outcome) {
	clean := strings.TrimSpace(query)
	if clean == "" || len(papers) == 0 {
		return papers, Outcome{Backend: BackendBM25Fallback}
	}

	name := embed.ResolveModel(model)
	embedder, err := r.models.GetOrLoad(name, func() (embed.Embedder, error) {
		return r.load(ctx, name)
	})
	if err != nil {
		return RankBM25(papers, clean), Outcome{Backend: BackendBM25Fallback}
	}

	docs := make([]string, len(papers))
	for i, p := range papers {
		docs[i] = strings.TrimSpace(p.Title + "\n" + p.Summary)
	}

	vecs, err := embedder.Embed(ctx, append([]string{clean}, docs...))
	if err != nil || len(vecs) != len(docs)+1 {
		return RankBM25(papers, clean), Outcome{Backend: BackendBM25Fallback}
	}

	queryVec := vecs[0]
	scored := make([]types.Paper, len(papers))
	for i, p := range papers {
		scored[i] = p
		scored[i].SemanticScore = roundScore(embed.Dot(queryVec, vecs[i+1]))
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].SemanticScore > scored[b].SemanticScore
	})

	return scored, Outcome{Backend: BackendSemantic, Model: embedder.ModelName()}
}
