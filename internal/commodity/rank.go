package commodity

import "sort"

// Rank scores a query name against every catalog entry and returns the best
// topN candidates in descending score order. Each entry is scored against
// its name and, when it differs, its description, keeping the higher score.
// Ties preserve catalog order. Duplicate codes are not de-duplicated here.
func Rank(query string, catalog []Commodity, topN int) []Candidate {
	if len(catalog) == 0 || topN <= 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(catalog))
	for _, c := range catalog {
		score := Score(query, c.Name)
		if c.Description != "" && c.Description != c.Name {
			if ds := Score(query, c.Description); ds > score {
				score = ds
			}
		}
		candidates = append(candidates, Candidate{Commodity: c, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}
