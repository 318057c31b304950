// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan derives concrete fetch parameters from a structured request.
// Building a plan never fails: malformed input is corrected by defaulting
// and clamping.
package plan

import (
	"github.com/pdiddy/paperscout/pkg/types"
)

// Built-in fallbacks used when the request supplies no usable values.
var (
	DefaultCategories = []string{"cs.AI", "cs.LG"}
	DefaultKeywords   = []string{"large language model", "transformer"}
)

const (
	defaultFinalCount = 5
	defaultMaxResults = 20

	maxCategories = 2
	maxKeywords   = 2
)

// Build turns a request plus configured defaults into a QueryPlan.
//
// fetch_count = max(max_results*4, target*12, 80) clamped to [40,300];
// over-fetching by this margin survives aggressive keyword filtering and
// ranking attrition. coarse_target_count = max(max_results, target*6, 30)
// clamped to [target,120].
func Build(req types.Request, cfg types.PlanConfig) types.QueryPlan {
	categories := types.NormList(req.Categories, DefaultCategories)
	if len(categories) > maxCategories {
		categories = categories[:maxCategories]
	}
	keywords := types.NormList(req.Keywords, DefaultKeywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	finalCount := cfg.FinalOutputPaperCount
	if finalCount == 0 {
		finalCount = defaultFinalCount
	}
	finalCount = types.ClampInt(finalCount, 1, 50)

	configuredMax := cfg.ArxivFetchMaxResults
	if configuredMax == 0 {
		configuredMax = defaultMaxResults
	}
	configuredMax = types.ClampInt(configuredMax, 5, 300)

	maxResults := types.IntOr(req.MaxResults, configuredMax)
	if cfg.LegacyMaxResultsBound {
		maxResults = types.ClampInt(maxResults, 1, 100)
	} else {
		maxResults = types.ClampInt(maxResults, finalCount, 300)
	}

	fetchCount := max(maxResults*4, finalCount*12, 80)
	fetchCount = types.ClampInt(fetchCount, 40, 300)

	coarseTarget := max(maxResults, finalCount*6, 30)
	coarseTarget = types.ClampInt(coarseTarget, finalCount, 120)

	return types.QueryPlan{
		Categories:        categories,
		Keywords:          keywords,
		MaxResults:        maxResults,
		TargetCount:       finalCount,
		CoarseTargetCount: coarseTarget,
		FetchCount:        fetchCount,
	}
}
