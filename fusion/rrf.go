package fusion

import (
	"sort"

	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// RankConstant is the standard RRF smoothing constant.
const RankConstant = 60

// RRF merges independently ordered candidate lists with Reciprocal Rank
// Fusion: each entry scores the sum of 1/(k+rank) over the lists it appears
// in, rank counted 1-based. The output is the union of all lists, sorted by
// descending fused score with ties broken by ascending code, truncated to
// limit (0 means no truncation). Deterministic and order-independent with
// respect to the input list order.
func RRF(lists [][]schema.Candidate, k, limit int) []schema.Candidate {
	if k <= 0 {
		k = RankConstant
	}
	scores := map[string]float64{}
	for _, list := range lists {
		for idx, item := range list {
			if item.Code == "" {
				continue
			}
			scores[item.Code] += 1.0 / float64(k+idx+1)
		}
	}

	out := make([]schema.Candidate, 0, len(scores))
	for code, score := range scores {
		out = append(out, schema.Candidate{Code: code, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
