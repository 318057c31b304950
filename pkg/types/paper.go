// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paperscout pipeline.
package types

import "strings"

// Paper represents a bibliographic record retrieved from arXiv.
// The record is a value passed between pipeline stages; SemanticScore is
// the one mutable annotation, attached by the ranking stages and not part
// of the record's identity.
type Paper struct {
	// ID is the canonical arXiv entry identifier (a URL-like string,
	// e.g. "http://arxiv.org/abs/2301.07041v1").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the API.
	Title string `json:"title" yaml:"title"`

	// Summary is the paper abstract.
	Summary string `json:"summary" yaml:"summary"`

	// Published is the publication timestamp as reported by the feed,
	// kept verbatim rather than reparsed.
	Published string `json:"published" yaml:"published"`

	// Authors lists the author names in feed order.
	Authors []string `json:"authors" yaml:"authors"`

	// Categories lists the subject tags (e.g. "cs.AI").
	Categories []string `json:"categories" yaml:"categories"`

	// URL is the canonical abstract page link (the feed's "alternate"
	// link, falling back to ID when absent).
	URL string `json:"url" yaml:"url"`

	// CitationCount is filled by best-effort enrichment; nil when unknown.
	CitationCount *int `json:"citation_count" yaml:"citation_count,omitempty"`

	// SemanticScore is attached by the coarse and fine ranking stages.
	SemanticScore float64 `json:"semantic_score,omitempty" yaml:"semantic_score,omitempty"`
}

// IdentityKey returns the deduplication key used throughout the pipeline:
// the ID if non-empty, else the URL, else the title. An empty key means the
// record cannot be deduplicated and is skipped by the selection merger.
func (p Paper) IdentityKey() string {
	for _, k := range []string{p.ID, p.URL, p.Title} {
		if s := strings.TrimSpace(k); s != "" {
			return s
		}
	}
	return ""
}
