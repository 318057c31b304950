// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores and orders candidate papers: a keyword filter, a BM25
// coarse ranker, a semantic fine ranker with BM25 fallback, and the final
// selection merger.
package rank

import (
	"regexp"
	"strings"
)

// tokenPattern matches ASCII alphanumeric runs of two or more characters
// (underscores and hyphens allowed after the first) and CJK ideograph runs.
var tokenPattern = regexp.MustCompile(`[a-z0-9][a-z0-9_\-]+|[\x{4e00}-\x{9fff}]+`)

// Tokenize lowercases text and splits it into ranking terms. ASCII runs are
// emitted whole; CJK runs, which carry no whitespace word boundaries, are
// emitted as-is when at most two characters and as overlapping character
// bigrams otherwise.
func Tokenize(text string) []string {
	var out []string
	for _, part := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		runes := []rune(part)
		if !isCJK(runes[0]) || len(runes) <= 2 {
			out = append(out, part)
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			out = append(out, string(runes[i:i+2]))
		}
	}
	return out
}

func isCJK(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}
