package retriever

import (
	"context"
	"fmt"

	"github.com/alwanrahmanas/kbli2020-matcher/cache"
	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/common/backoff"
	"github.com/alwanrahmanas/kbli2020-matcher/llm"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// Vector scores catalog entries by cosine similarity between the query
// embedding and each entry's precomputed embedding. Entry vectors are
// normalized at index build time, so similarity reduces to a dot product.
//
// A provider failure surfaces as a recoverable error after the backoff
// policy is exhausted; the caller degrades to lexical-only ranking.
type Vector struct {
	Index    *catalog.Index
	Embedder llm.Embedder
	Cache    *cache.Embeddings
	Backoff  backoff.Policy
}

func NewVector(idx *catalog.Index, embedder llm.Embedder, c *cache.Embeddings) *Vector {
	p := backoff.Default()
	p.Retryable = llm.IsRetryable
	return &Vector{Index: idx, Embedder: embedder, Cache: c, Backoff: p}
}

func (v *Vector) Type() string { return "vector" }

func (v *Vector) Search(ctx context.Context, query string, topK int) ([]schema.Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	q, err := v.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	// A wrong-length vector would silently truncate the dot products, so it
	// is treated like any other malformed provider response.
	if len(q) != v.Index.Dimension() {
		return nil, llm.InvalidResponse("vector.search",
			fmt.Errorf("query embedding has dimension %d, catalog expects %d", len(q), v.Index.Dimension()))
	}
	q = catalog.NormalizeL2(q)

	cands := make([]schema.Candidate, 0, v.Index.Len())
	for i := 0; i < v.Index.Len(); i++ {
		cands = append(cands, schema.Candidate{
			Code:  v.Index.Entry(i).Code,
			Score: dot(v.Index.Vector(i), q),
		})
	}
	return sortAndTruncate(cands, topK), nil
}

func (v *Vector) embed(ctx context.Context, query string) ([]float64, error) {
	if v.Cache != nil {
		if vec, ok := v.Cache.Get(query); ok {
			return vec, nil
		}
	}
	var vec []float64
	err := v.Backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = v.Embedder.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	if v.Cache != nil {
		v.Cache.Set(query, vec)
	}
	return vec, nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
