// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the paper retrieval run: plan, resilient
// fetch, coarse and fine ranking, selection, enrichment, and recording.
// A step failure is recorded under its stage label and the run continues
// with safe defaults; the pipeline always terminates with some result.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paperscout/internal/arxiv"
	"github.com/pdiddy/paperscout/internal/plan"
	"github.com/pdiddy/paperscout/internal/rank"
	"github.com/pdiddy/paperscout/internal/store"
	"github.com/pdiddy/paperscout/pkg/types"
)

// Metadata is the outbound diagnostics record handed to downstream
// collaborators. Consumed for display only, never re-parsed.
type Metadata struct {
	Categories            []string `json:"categories" yaml:"categories"`
	Keywords              []string `json:"keywords" yaml:"keywords"`
	SemanticQuery         string   `json:"semantic_query" yaml:"semantic_query"`
	FinalOutputPaperCount int      `json:"final_output_paper_count" yaml:"final_output_paper_count"`
	MaxResults            int      `json:"max_results" yaml:"max_results"`
	TargetCount           int      `json:"target_count" yaml:"target_count"`
	CoarseTargetCount     int      `json:"coarse_target_count" yaml:"coarse_target_count"`
	FetchCount            int      `json:"fetch_count" yaml:"fetch_count"`
	FetchSource           string   `json:"fetch_source" yaml:"fetch_source"`
	FetchErrors           []string `json:"fetch_errors" yaml:"fetch_errors,omitempty"`
	CompareAlgorithm      string   `json:"compare_algorithm" yaml:"compare_algorithm"`
	EmbeddingModel        string   `json:"sentence_transformer_model" yaml:"sentence_transformer_model"`
}

// Result is what a pipeline run hands back: the final ordered selection
// plus diagnostics.
type Result struct {
	Query    string            `json:"query" yaml:"query"`
	Request  types.Request     `json:"request" yaml:"request"`
	Papers   []types.Paper     `json:"papers" yaml:"papers"`
	Metadata Metadata          `json:"metadata" yaml:"metadata"`
	Errors   map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`

	TotalFetched  int `json:"total_fetched" yaml:"total_fetched"`
	FilteredCount int `json:"filtered_count" yaml:"filtered_count"`
	SelectedCount int `json:"selected_count" yaml:"selected_count"`
}

// Comparer orders candidate papers against the researcher's need. The
// production implementation calls an LLM; this core treats it as an
// external collaborator.
type Comparer interface {
	// Compare returns at most limit papers, best first.
	Compare(ctx context.Context, query string, papers []types.Paper, limit int) ([]types.Paper, error)
	// Name describes the comparison algorithm for diagnostics.
	Name() string
}

// RankOrderComparer is the default Comparer: it trusts the fine-ranking
// order and truncates to the limit.
type RankOrderComparer struct{}

// Compare keeps the incoming order.
func (RankOrderComparer) Compare(_ context.Context, _ string, papers []types.Paper, limit int) ([]types.Paper, error) {
	if limit > 0 && len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// Name identifies the passthrough strategy.
func (RankOrderComparer) Name() string { return "rank-order" }

// Pipeline wires the retrieval stages together.
type Pipeline struct {
	Config   types.PipelineConfig
	Client   *arxiv.Client
	Ranker   *rank.FineRanker
	Comparer Comparer
	Store    *store.Store // optional; nil disables run recording
	Out      io.Writer    // progress and warnings
}

// New builds a pipeline with the default HTTP client, Ollama-backed fine
// ranker, and rank-order comparer.
func New(cfg types.PipelineConfig, out io.Writer) *Pipeline {
	return &Pipeline{
		Config: cfg,
		Client: &arxiv.Client{
			HTTP:      &http.Client{Timeout: cfg.Fetch.Timeout},
			UserAgent: cfg.Fetch.UserAgent,
		},
		Ranker:   rank.NewFineRanker(cfg.Embed),
		Comparer: RankOrderComparer{},
		Out:      out,
	}
}

// run is the mutable state threaded through the steps.
type run struct {
	query string

	plan         types.QueryPlan
	papers       []types.Paper
	filtered     int
	coarseRanked []types.Paper
	fineRanked   []types.Paper
	fineOutcome  rank.Outcome
	selected     []types.Paper
	fetchMeta    arxiv.FetchMeta
}

// step is one named pipeline stage. A returned error lands in the errors
// map under Label and the run proceeds.
type step struct {
	Name  string
	Label string
	Run   func(ctx context.Context, r *run) error
}

// Execute runs the full retrieval pipeline for the given request and
// free-text research need. It never returns an error: failures degrade to
// an empty selection with the error trail in Result.Errors.
func (p *Pipeline) Execute(ctx context.Context, req types.Request, query string) Result {
	r := &run{query: strings.TrimSpace(query)}
	req.Categories = append([]string(nil), req.Categories...)
	req.Keywords = append([]string(nil), req.Keywords...)

	errs := make(map[string]string)
	for _, s := range p.steps(req) {
		fmt.Fprintf(p.out(), "==> %s\n", s.Name)
		if err := s.Run(ctx, r); err != nil {
			errs[s.Label] = err.Error()
			fmt.Fprintf(p.out(), "warning: %s: %v\n", s.Label, err)
		}
	}

	if r.selected == nil {
		r.selected = []types.Paper{}
	}

	res := Result{
		Query:         r.query,
		Request:       req,
		Papers:        r.selected,
		Errors:        errs,
		TotalFetched:  len(r.papers),
		FilteredCount: r.filtered,
		SelectedCount: len(r.selected),
		Metadata: Metadata{
			Categories:            r.plan.Categories,
			Keywords:              r.plan.Keywords,
			SemanticQuery:         r.query,
			FinalOutputPaperCount: r.plan.TargetCount,
			MaxResults:            r.plan.MaxResults,
			TargetCount:           r.plan.TargetCount,
			CoarseTargetCount:     r.plan.CoarseTargetCount,
			FetchCount:            r.plan.FetchCount,
			FetchSource:           r.fetchMeta.Source,
			FetchErrors:           r.fetchMeta.Errors,
			CompareAlgorithm:      p.compareAlgorithm(r.fineOutcome),
			EmbeddingModel:        p.Config.Embed.Model,
		},
	}

	if p.Store != nil {
		if err := p.recordRun(ctx, res); err != nil {
			res.Errors["run_record"] = err.Error()
		}
	}
	return res
}

func (p *Pipeline) steps(req types.Request) []step {
	return []step{
		{
			Name:  "Derive query plan",
			Label: "query_plan",
			Run: func(_ context.Context, r *run) error {
				r.plan = plan.Build(req, p.Config.Plan)
				if r.query == "" {
					r.query = strings.Join(r.plan.Keywords, " ")
				}
				return nil
			},
		},
		{
			Name:  "Fetch papers from arXiv",
			Label: "arxiv_fetch",
			Run: func(ctx context.Context, r *run) error {
				cache := arxiv.FetchCache{Dir: p.Config.Fetch.DataDir}
				r.papers, r.fetchMeta = p.Client.Fetch(ctx,
					r.plan.Categories, r.plan.Keywords, r.plan.FetchCount,
					cache, p.Config.Fetch.CacheMaxAge)
				r.filtered = len(rank.KeywordFilter(r.papers, r.plan.Keywords))

				if r.fetchMeta.UsedCache {
					return fmt.Errorf("arXiv fetch failed; using cached candidate papers")
				}
				if len(r.papers) == 0 {
					return fmt.Errorf("no papers fetched: %s", strings.Join(r.fetchMeta.Errors, "; "))
				}
				return nil
			},
		},
		{
			Name:  "Rank candidates (BM25 coarse, semantic fine)",
			Label: "arxiv_rank",
			Run: func(ctx context.Context, r *run) error {
				r.coarseRanked = rank.RankBM25(r.papers, r.query)
				pool := r.coarseRanked
				if len(pool) > r.plan.CoarseTargetCount {
					pool = pool[:r.plan.CoarseTargetCount]
				}
				r.fineRanked, r.fineOutcome = p.Ranker.Rank(ctx, pool, r.query, p.Config.Embed.Model)
				return nil
			},
		},
		{
			Name:  "Merge selection",
			Label: "arxiv_select",
			Run: func(_ context.Context, r *run) error {
				r.selected = rank.MergeSelection(r.fineRanked, r.coarseRanked, r.plan.CoarseTargetCount)
				return nil
			},
		},
		{
			Name:  "Enrich citation counts",
			Label: "citation_enrich",
			Run: func(ctx context.Context, r *run) error {
				if len(r.selected) == 0 {
					return nil
				}
				enriched, err := arxiv.EnrichCitations(ctx, p.Client.HTTP, r.selected,
					p.Config.Fetch.SemanticScholarAPIKey, p.Config.Fetch.UserAgent)
				r.selected = enriched
				return err
			},
		},
		{
			Name:  "Compare against research need",
			Label: "arxiv_compare",
			Run: func(ctx context.Context, r *run) error {
				final, err := p.Comparer.Compare(ctx, r.query, r.selected, r.plan.TargetCount)
				if err != nil {
					// Keep the ranked selection, truncated to target.
					if len(r.selected) > r.plan.TargetCount {
						r.selected = r.selected[:r.plan.TargetCount]
					}
					return err
				}
				r.selected = final
				return nil
			},
		},
	}
}

func (p *Pipeline) compareAlgorithm(outcome rank.Outcome) string {
	fine := string(outcome.Backend)
	if outcome.Model != "" {
		fine += "(" + outcome.Model + ")"
	}
	name := "rank-order"
	if p.Comparer != nil {
		name = p.Comparer.Name()
	}
	return fmt.Sprintf("coarse=bm25; fine=%s; compare=%s", fine, name)
}

func (p *Pipeline) recordRun(ctx context.Context, res Result) error {
	meta, err := json.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("encoding run metadata: %w", err)
	}
	_, err = p.Store.RecordRun(ctx, store.RunRecord{
		CreatedAt:     time.Now(),
		Query:         res.Query,
		Categories:    res.Metadata.Categories,
		Keywords:      res.Metadata.Keywords,
		FetchSource:   res.Metadata.FetchSource,
		Backend:       res.Metadata.CompareAlgorithm,
		Model:         res.Metadata.EmbeddingModel,
		TotalFetched:  res.TotalFetched,
		FilteredCount: res.FilteredCount,
		SelectedCount: res.SelectedCount,
		Metadata:      string(meta),
		Papers:        res.Papers,
	})
	return err
}

func (p *Pipeline) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return io.Discard
}
