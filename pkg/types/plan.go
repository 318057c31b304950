// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Request is the inbound contract from the parameter-generation
// collaborator: up to two categories, up to two keywords, and a desired
// result count. Fields may arrive missing or malformed; the plan builder
// corrects them by defaulting and clamping, never by failing.
type Request struct {
	// Categories are arXiv subject tags; at most two are used.
	Categories []string `json:"categories" yaml:"categories"`

	// Keywords are free-text search phrases; at most two are used.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// MaxResults is the requested result count as produced by the
	// collaborator. It is kept as a string because upstream output is
	// model-generated JSON; non-numeric values fall back to the
	// configured default.
	MaxResults string `json:"max_results" yaml:"max_results"`
}

// QueryPlan holds the concrete fetch parameters derived from a Request.
// Invariant: TargetCount <= CoarseTargetCount <= FetchCount, all within
// their documented clamp ranges.
type QueryPlan struct {
	// Categories are the subject tags actually queried (<=2, defaulted).
	Categories []string `json:"categories" yaml:"categories"`

	// Keywords are the search phrases actually queried (<=2, defaulted).
	Keywords []string `json:"keywords" yaml:"keywords"`

	// MaxResults is the parsed and clamped requested result count.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// TargetCount is the final desired paper count, in [1,50].
	TargetCount int `json:"target_count" yaml:"target_count"`

	// CoarseTargetCount is the candidate pool size handed to fine
	// ranking, in [TargetCount,120].
	CoarseTargetCount int `json:"coarse_target_count" yaml:"coarse_target_count"`

	// FetchCount is the raw API page size requested, in [40,300].
	// Over-fetching substantially survives filtering and ranking attrition.
	FetchCount int `json:"fetch_count" yaml:"fetch_count"`
}
