// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"github.com/pdiddy/paperscout/pkg/types"
)

// MergeSelection walks the fine-ranked list and then the coarse-ranked
// list, keeping the first occurrence of each identity key until limit
// papers are selected. Fine-ranking order always wins over coarse order;
// the coarse list only backfills when the fine list runs out. Papers with
// no identity key are skipped.
func MergeSelection(fine, coarse []types.Paper, limit int) []types.Paper {
	if limit <= 0 {
		return nil
	}

	var selected []types.Paper
	seen := make(map[string]struct{})
	for _, list := range [][]types.Paper{fine, coarse} {
		for _, p := range list {
			if len(selected) >= limit {
				return selected
			}
			key := p.IdentityKey()
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			selected = append(selected, p)
		}
	}
	return selected
}
