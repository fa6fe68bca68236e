package catalog

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"modelrun/pkg/types"
)

// maxEditDistance bounds typo suggestions when no name contains the id as a subsequence.
const maxEditDistance = 3

// Suggest returns up to limit catalog names close to id, best first.
func Suggest(recs []types.CatalogRecord, id string, limit int) []string {
	if id == "" || limit <= 0 {
		return nil
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Name)
	}
	ranks := fuzzy.RankFindFold(id, names)
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == limit {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	type near struct {
		name string
		dist int
	}
	var cands []near
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(id, n); d <= maxEditDistance {
			cands = append(cands, near{n, d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	for _, c := range cands {
		out = append(out, c.name)
		if len(out) == limit {
			break
		}
	}
	return out
}
