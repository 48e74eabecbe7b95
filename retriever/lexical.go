package retriever

import (
	"context"

	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// BM25 constants. k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Lexical scores catalog entries with BM25 over the tokenized entry text
// (title + hierarchy + scope). Entries sharing no term with the query are
// excluded from the result. Purely in-process and deterministic.
type Lexical struct {
	Index *catalog.Index
}

func NewLexical(idx *catalog.Index) *Lexical { return &Lexical{Index: idx} }

func (l *Lexical) Type() string { return "lexical" }

func (l *Lexical) Search(_ context.Context, query string, topK int) ([]schema.Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	terms := catalog.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	avgdl := l.Index.AvgDocLen()
	cands := make([]schema.Candidate, 0, topK)
	for i := 0; i < l.Index.Len(); i++ {
		score := 0.0
		dl := float64(l.Index.DocLen(i))
		for _, term := range terms {
			tf := float64(l.Index.TermFreq(i, term))
			if tf == 0 {
				continue
			}
			idf := l.Index.IDF(term)
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*dl/avgdl))
		}
		if score > 0 {
			cands = append(cands, schema.Candidate{Code: l.Index.Entry(i).Code, Score: score})
		}
	}
	return sortAndTruncate(cands, topK), nil
}
