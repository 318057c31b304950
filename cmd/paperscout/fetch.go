// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/pipeline"
	"github.com/pdiddy/paperscout/internal/store"
	"github.com/pdiddy/paperscout/pkg/types"
)

const defaultUserAgent = "paperscout/0.1"

var fetchCmd = &cobra.Command{
	Use:   "fetch [query...]",
	Short: "Fetch and rank arXiv papers for a research need",
	Long: `Fetch derives a query plan from categories and keywords, retrieves
candidate papers from arXiv with query degradation and timeout budgets,
ranks them (BM25 coarse pass, sentence-embedding fine pass), and prints
the final selection. Failed stages degrade rather than abort; their
errors appear in the run summary.

The free-text query drives the semantic ranking; when omitted, the
keywords are used instead.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("categories", "", "arXiv categories (comma-separated, e.g. cs.AI,cs.LG)")
	fetchCmd.Flags().String("keywords", "", "search keywords (comma-separated)")
	fetchCmd.Flags().String("max-results", "", "requested result count (permissive; blank or junk falls back to config)")
	fetchCmd.Flags().Int("final-count", 0, "number of papers in the final output (default 5)")
	fetchCmd.Flags().String("model", "", "embedding model for the fine ranking pass")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default per attempt budget)")
	fetchCmd.Flags().Bool("json", false, "output the full result as JSON")
	fetchCmd.Flags().String("save", "", "save the run to a YAML file")
	fetchCmd.Flags().Bool("no-record", false, "skip recording the run in the local history")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)
	req := requestFromFlags(cmd)
	query := strings.Join(args, " ")

	p := pipeline.New(cfg, os.Stderr)

	noRecord, _ := cmd.Flags().GetBool("no-record")
	if !noRecord {
		s, err := store.Open(cfg.Store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: run history unavailable: %v\n", err)
		} else {
			defer s.Close()
			p.Store = s
		}
	}

	res := p.Execute(context.Background(), req, query)

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := pipeline.WriteRunFile(path, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run to %s\n", path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return pipeline.FormatJSON(res, os.Stdout)
	}

	pipeline.FormatTable(res, os.Stdout)
	fmt.Fprint(os.Stderr, pipeline.Summarize(res))
	return nil
}

func requestFromFlags(cmd *cobra.Command) types.Request {
	categories, _ := cmd.Flags().GetString("categories")
	keywords, _ := cmd.Flags().GetString("keywords")
	maxResults, _ := cmd.Flags().GetString("max-results")

	return types.Request{
		Categories: splitCSV(categories),
		Keywords:   splitCSV(keywords),
		MaxResults: maxResults,
	}
}

// pipelineConfig assembles the stage configurations from flags, the config
// file, and loaded secrets, in that precedence order.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	dir := dataDir(cmd)

	finalCount, _ := cmd.Flags().GetInt("final-count")
	if finalCount == 0 {
		finalCount = viper.GetInt("plan.final_output_paper_count")
	}
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("embed.model")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("fetch.timeout")
	}
	userAgent := viper.GetString("fetch.user_agent")
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var cfg types.PipelineConfig
	cfg.Plan = types.PlanConfig{
		FinalOutputPaperCount: finalCount,
		ArxivFetchMaxResults:  viper.GetInt("plan.arxiv_fetch_max_results"),
		LegacyMaxResultsBound: viper.GetBool("plan.legacy_max_results_bound"),
	}
	cfg.Fetch = types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: userAgent,
		},
		DataDir:               dir,
		CacheMaxAge:           viper.GetDuration("fetch.cache_max_age"),
		SemanticScholarAPIKey: loadedSecrets.Get("semantic-scholar-api-key", viper.GetString("fetch.semantic_scholar_api_key")),
	}
	cfg.Embed = types.EmbedConfig{
		Host:    loadedSecrets.Get("ollama-host", viper.GetString("embed.host")),
		Model:   model,
		Timeout: viper.GetDuration("embed.timeout"),
	}
	cfg.Store = types.StoreConfig{DataDir: dir}
	return cfg
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
