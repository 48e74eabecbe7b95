package retriever

import (
	"context"
	"sort"

	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// Scorer ranks catalog entries against a query and returns the top-K
// candidates, best first.
type Scorer interface {
	Type() string
	Search(ctx context.Context, query string, topK int) ([]schema.Candidate, error)
}

// DefaultTopK is the candidate count a scorer returns when the caller
// passes a non-positive K.
const DefaultTopK = 10

// sortAndTruncate orders candidates by descending score, breaking ties by
// ascending code so repeated runs produce identical output, then keeps topK.
func sortAndTruncate(cands []schema.Candidate, topK int) []schema.Candidate {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Code < cands[j].Code
	})
	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}
	return cands
}
