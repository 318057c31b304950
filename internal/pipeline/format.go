// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FormatTable writes the selected papers as a human-readable table to w.
func FormatTable(res Result, w io.Writer) {
	if len(res.Papers) == 0 {
		fmt.Fprintln(w, "No papers selected.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Cites")
	fmt.Fprintln(w, strings.Repeat("-", 108))

	for i, p := range res.Papers {
		title := Truncate(p.Title, 60)
		year := ""
		if len(p.Published) >= 4 {
			year = p.Published[:4]
		}
		cites := ""
		if p.CitationCount != nil {
			cites = fmt.Sprintf("%d", *p.CitationCount)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6.3f  %s\n",
			i+1, title, formatAuthors(p.Authors), year, p.SemanticScore, cites)
	}

	fmt.Fprintf(w, "\n%d papers selected of %d fetched", len(res.Papers), res.TotalFetched)
	if res.Metadata.FetchSource != "" {
		fmt.Fprintf(w, " (source: %s)", res.Metadata.FetchSource)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the full result as indented JSON to w.
func FormatJSON(res Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Summarize renders a short plain-text recap of the run.
func Summarize(res Result) string {
	var b strings.Builder
	b.WriteString("Paper retrieval complete.\n")
	fmt.Fprintf(&b, "Fetched %d papers (%d keyword matches), selected %d.\n",
		res.TotalFetched, res.FilteredCount, res.SelectedCount)
	if res.Metadata.FetchSource != "" {
		fmt.Fprintf(&b, "Fetch source: %s\n", res.Metadata.FetchSource)
	}
	fmt.Fprintf(&b, "Ranking: %s\n", res.Metadata.CompareAlgorithm)
	if len(res.Errors) > 0 {
		b.WriteString("Warnings:\n")
		for _, label := range sortedKeys(res.Errors) {
			fmt.Fprintf(&b, "  %s: %s\n", label, res.Errors[label])
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return Truncate(authors[0], 20)
	default:
		return Truncate(authors[0], 14) + " et al."
	}
}

// Truncate shortens s to at most max runes, replacing the tail with "..."
// when it does not fit. Cutting on rune boundaries keeps multi-byte titles
// valid UTF-8.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
