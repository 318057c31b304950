// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strconv"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperscout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PlanConfig holds the knobs consumed by the query plan builder.
type PlanConfig struct {
	// FinalOutputPaperCount is the desired final paper count, clamped to [1,50].
	FinalOutputPaperCount int `json:"final_output_paper_count" yaml:"final_output_paper_count"`

	// ArxivFetchMaxResults is the configured default for max_results,
	// clamped to [5,300].
	ArxivFetchMaxResults int `json:"arxiv_fetch_max_results" yaml:"arxiv_fetch_max_results"`

	// LegacyMaxResultsBound selects the older configuration schema's
	// narrower [1,100] clamp for max_results instead of [target,300].
	LegacyMaxResultsBound bool `json:"legacy_max_results_bound,omitempty" yaml:"legacy_max_results_bound,omitempty"`
}

// FetchConfig holds settings for the resilient arXiv fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DataDir is the application data directory holding the fallback cache.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CacheMaxAge is how long the fallback cache stays usable (default 24h).
	CacheMaxAge time.Duration `json:"cache_max_age" yaml:"cache_max_age"`

	// SemanticScholarAPIKey is an optional key for citation enrichment.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`
}

// EmbedConfig holds settings for the semantic fine-ranking stage.
type EmbedConfig struct {
	// Host is the Ollama server base URL (default http://localhost:11434).
	Host string `json:"host" yaml:"host"`

	// Model is the embedding model identifier. Unknown names fall back
	// to the default from the allow-list.
	Model string `json:"model" yaml:"model"`

	// Timeout bounds a single embed request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// StoreConfig holds settings for the run-history store.
type StoreConfig struct {
	// DataDir is the directory holding the SQLite database.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PipelineConfig groups all stage configurations for a retrieval run.
type PipelineConfig struct {
	Plan  PlanConfig  `json:"plan" yaml:"plan"`
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`
	Embed EmbedConfig `json:"embed" yaml:"embed"`
	Store StoreConfig `json:"store" yaml:"store"`
}

// IntOr parses s as a decimal integer, returning fallback when s is empty
// or malformed. Upstream parameters are model-generated and frequently
// arrive as quoted numbers, blanks, or junk; every call site wants the
// same permissive treatment.
func IntOr(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

// ClampInt constrains v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormList trims entries and drops blanks; if nothing survives, the
// defaults are returned instead.
func NormList(values, defaults []string) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}
