// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/paperscout/pkg/types"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75

	// titleBonusWeight rewards query terms appearing in the title beyond
	// what BM25 over title+summary captures.
	titleBonusWeight = 0.6
)

// KeywordFilter keeps papers whose title or summary contains any keyword,
// case-insensitively. An empty keyword list is a passthrough. The filter is
// a pure predicate: applying it to its own output changes nothing.
func KeywordFilter(papers []types.Paper, keywords []string) []types.Paper {
	var kws []string
	for _, k := range keywords {
		if s := strings.ToLower(strings.TrimSpace(k)); s != "" {
			kws = append(kws, s)
		}
	}
	if len(kws) == 0 {
		return papers
	}

	var out []types.Paper
	for _, p := range papers {
		text := strings.ToLower(p.Title + " " + p.Summary)
		for _, k := range kws {
			if strings.Contains(text, k) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// RankBM25 scores papers against the free-text query with BM25 (k1=1.2,
// b=0.75) over title+summary, plus a title-overlap bonus of
// 0.6 * |query terms ∩ title terms| / |query terms|. Scores are attached as
// SemanticScore and the result is sorted descending. The sort is stable, so
// tied documents keep their input order. A query with no recognized terms
// returns the papers unmodified; a document with no terms scores 0 and
// sorts last.
func RankBM25(papers []types.Paper, query string) []types.Paper {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 || len(papers) == 0 {
		return papers
	}

	docTerms := make([][]string, len(papers))
	titleSets := make([]map[string]struct{}, len(papers))
	totalLen := 0
	df := make(map[string]int)
	for i, p := range papers {
		docTerms[i] = Tokenize(p.Title + " " + p.Summary)
		totalLen += len(docTerms[i])

		titleSets[i] = termSet(Tokenize(p.Title))
		for term := range termSet(docTerms[i]) {
			df[term]++
		}
	}

	nDocs := float64(len(papers))
	avgLen := float64(totalLen) / nDocs
	querySet := termSet(queryTerms)

	idf := func(term string) float64 {
		dft := float64(df[term])
		return math.Log(1.0 + (nDocs-dft+0.5)/(dft+0.5))
	}

	scored := make([]types.Paper, len(papers))
	for i, p := range papers {
		score := 0.0
		if len(docTerms[i]) > 0 {
			tf := make(map[string]int, len(docTerms[i]))
			for _, term := range docTerms[i] {
				tf[term]++
			}
			dl := float64(len(docTerms[i]))
			for _, term := range queryTerms {
				freq := float64(tf[term])
				if freq <= 0 {
					continue
				}
				denom := freq + bm25K1*(1.0-bm25B+bm25B*dl/math.Max(1e-6, avgLen))
				score += idf(term) * (freq * (bm25K1 + 1.0) / math.Max(1e-6, denom))
			}

			hits := 0
			for term := range querySet {
				if _, ok := titleSets[i][term]; ok {
					hits++
				}
			}
			score += titleBonusWeight * float64(hits) / float64(len(querySet))
		}

		scored[i] = p
		scored[i].SemanticScore = roundScore(score)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].SemanticScore > scored[b].SemanticScore
	})
	return scored
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// roundScore trims scores to six decimal places so they survive
// serialization without float noise.
func roundScore(s float64) float64 {
	return math.Round(s*1e6) / 1e6
}
