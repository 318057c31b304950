// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/paperscout/internal/httputil"
	"github.com/pdiddy/paperscout/pkg/types"
)

// citationsAPIBase is the Semantic Scholar batch endpoint. Declared as a
// var so tests can substitute an httptest server.
var citationsAPIBase = "https://api.semanticscholar.org/graph/v1/paper/batch"

// EnrichCitations fills CitationCount on the given papers via a single
// Semantic Scholar batch lookup, keyed by bare arXiv IDs. Papers whose IDs
// cannot be resolved keep a nil count. Enrichment is best-effort: the
// caller records the returned error as a warning, never a failure.
func EnrichCitations(ctx context.Context, client *http.Client, papers []types.Paper, apiKey, userAgent string) ([]types.Paper, error) {
	out := make([]types.Paper, len(papers))
	copy(out, papers)

	var ids []string
	var positions []int
	for i, p := range out {
		if id := ExtractArxivID(p.ID); id != "" {
			ids = append(ids, "ARXIV:"+id)
			positions = append(positions, i)
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return out, fmt.Errorf("encoding citation batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, citationsAPIBase+"?fields=citationCount", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return out, fmt.Errorf("Semantic Scholar batch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("Semantic Scholar batch returned HTTP %d", resp.StatusCode)
	}

	// The response array is positionally aligned with the request IDs;
	// unknown papers come back as null.
	var entries []*struct {
		CitationCount *int `json:"citationCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return out, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	for i, entry := range entries {
		if i >= len(positions) || entry == nil || entry.CitationCount == nil {
			continue
		}
		out[positions[i]].CitationCount = entry.CitationCount
	}
	return out, nil
}

// ExtractArxivID pulls the bare arXiv ID from an entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func ExtractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
