// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv API with retry, query degradation, and a
// local fallback cache.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paperscout/internal/httputil"
	"github.com/pdiddy/paperscout/pkg/types"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// Sort orders accepted by the arXiv API.
const (
	SortRelevance = "relevance"
	SortRecency   = "submittedDate"
)

// Client issues queries against the arXiv API.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// Search runs one query against the arXiv API and parses the Atom feed.
// timeout bounds this single request; sortBy selects relevance or recency
// ordering, always descending.
func (c *Client) Search(ctx context.Context, query string, count int, sortBy string, timeout time.Duration) ([]types.Paper, error) {
	params := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", count)},
		"sortBy":       {sortBy},
		"sortOrder":    {"descending"},
	}
	reqURL := apiBase + "?" + params.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(reqCtx, c.HTTP, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		p := types.Paper{
			ID:        strings.TrimSpace(entry.ID),
			Title:     strings.TrimSpace(entry.Title),
			Summary:   strings.TrimSpace(entry.Summary),
			Published: strings.TrimSpace(entry.Published),
		}

		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		for _, cat := range entry.Categories {
			if term := strings.TrimSpace(cat.Term); term != "" {
				p.Categories = append(p.Categories, term)
			}
		}

		// Prefer the "alternate" link relation; fall back to the entry ID.
		for _, lk := range entry.Links {
			if lk.Rel == "alternate" && strings.TrimSpace(lk.Href) != "" {
				p.URL = strings.TrimSpace(lk.Href)
				break
			}
		}
		if p.URL == "" {
			p.URL = p.ID
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// BuildQuery constructs the search_query parameter: categories OR-joined
// with cat: prefixes, keywords OR-joined quoted with all: prefixes, the two
// groups ANDed. With neither present a generic query is returned rather
// than an empty one.
func BuildQuery(categories, keywords []string) string {
	var catParts, kwParts []string
	for _, c := range categories {
		if s := strings.TrimSpace(c); s != "" {
			catParts = append(catParts, "cat:"+s)
		}
	}
	for _, k := range keywords {
		if s := strings.TrimSpace(k); s != "" {
			kwParts = append(kwParts, fmt.Sprintf("all:%q", s))
		}
	}

	catQ := strings.Join(catParts, " OR ")
	kwQ := strings.Join(kwParts, " OR ")
	switch {
	case catQ != "" && kwQ != "":
		return fmt.Sprintf("(%s) AND (%s)", catQ, kwQ)
	case catQ != "":
		return catQ
	case kwQ != "":
		return kwQ
	default:
		return "all:machine learning"
	}
}

// arXiv Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}
