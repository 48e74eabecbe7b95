package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// IntegrityError reports a malformed catalog source. It is startup-fatal:
// the process must not serve queries against a broken index.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "catalog integrity: " + e.Reason
}

// Index is the process-wide read-only view of all classification entries,
// with the lexical statistics and normalized embeddings both scorers need.
// It is built once at startup and never mutated; concurrent reads require no
// locking. Reload means building a fresh Index and swapping the pointer.
type Index struct {
	entries []schema.Entry
	byCode  map[string]int

	// Lexical statistics over Tokenize(entry.SearchText()).
	termFreqs []map[string]int
	docLen    []int
	avgdl     float64
	idf       map[string]float64

	// L2-normalized entry embeddings, same order as entries.
	vectors [][]float64
	dim     int
}

// Build constructs the index from an externally supplied record collection.
// Records whose code is not a 5-digit number are skipped (the KBLI source
// interleaves section and group headers with the leaf entries); duplicates
// and missing or mismatched embeddings among the remaining records are fatal.
func Build(records []schema.Entry) (*Index, error) {
	valid := make([]schema.Entry, 0, len(records))
	for _, r := range records {
		if !isLeafCode(r.Code) {
			logger.Debugf("catalog: skipping non-leaf record %q", r.Code)
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return nil, &IntegrityError{Reason: "no valid 5-digit entries in source collection"}
	}

	// Stable order by code so every derived structure is deterministic.
	sort.Slice(valid, func(i, j int) bool { return valid[i].Code < valid[j].Code })

	idx := &Index{
		entries:   valid,
		byCode:    make(map[string]int, len(valid)),
		termFreqs: make([]map[string]int, len(valid)),
		docLen:    make([]int, len(valid)),
		idf:       make(map[string]float64),
		vectors:   make([][]float64, len(valid)),
	}

	totalLen := 0
	docFreq := make(map[string]int)
	for i, e := range valid {
		if _, dup := idx.byCode[e.Code]; dup {
			return nil, &IntegrityError{Reason: fmt.Sprintf("duplicate code %s", e.Code)}
		}
		idx.byCode[e.Code] = i

		if len(e.Embedding) == 0 {
			return nil, &IntegrityError{Reason: fmt.Sprintf("entry %s has no embedding", e.Code)}
		}
		if idx.dim == 0 {
			idx.dim = len(e.Embedding)
		} else if len(e.Embedding) != idx.dim {
			return nil, &IntegrityError{Reason: fmt.Sprintf("entry %s embedding dimension %d, want %d", e.Code, len(e.Embedding), idx.dim)}
		}
		idx.vectors[i] = NormalizeL2(e.Embedding)

		tokens := Tokenize(e.SearchText())
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		idx.termFreqs[i] = tf
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)
		for t := range tf {
			docFreq[t]++
		}
	}
	idx.avgdl = float64(totalLen) / float64(len(valid))

	// IDF with +1 smoothing so rare terms never go negative.
	n := float64(len(valid))
	for t, df := range docFreq {
		idx.idf[t] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	logger.Infof("catalog: indexed %d entries, %d unique terms, dim=%d", len(valid), len(idx.idf), idx.dim)
	return idx, nil
}

// LoadFile reads a JSON array of records and builds the index from it.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var records []schema.Entry
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &IntegrityError{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return Build(records)
}

// Len returns the number of indexed entries.
func (x *Index) Len() int { return len(x.entries) }

// Entries returns all entries in ascending code order. Callers must not
// modify the returned slice.
func (x *Index) Entries() []schema.Entry { return x.entries }

// ByCode returns the entry for a code. A miss is a normal negative result.
func (x *Index) ByCode(code string) (schema.Entry, bool) {
	i, ok := x.byCode[code]
	if !ok {
		return schema.Entry{}, false
	}
	return x.entries[i], true
}

// Entry returns the entry at position i (ascending code order).
func (x *Index) Entry(i int) schema.Entry { return x.entries[i] }

// IDF returns the inverse document frequency of a term, 0 for unseen terms.
func (x *Index) IDF(term string) float64 { return x.idf[term] }

// TermFreq returns how often term occurs in entry i's indexed text.
func (x *Index) TermFreq(i int, term string) int { return x.termFreqs[i][term] }

// DocLen returns the token count of entry i's indexed text.
func (x *Index) DocLen(i int) int { return x.docLen[i] }

// AvgDocLen returns the mean indexed-text length across all entries.
func (x *Index) AvgDocLen() float64 { return x.avgdl }

// Vector returns the L2-normalized embedding of entry i.
func (x *Index) Vector(i int) []float64 { return x.vectors[i] }

// Dimension returns the embedding dimensionality.
func (x *Index) Dimension() int { return x.dim }

func isLeafCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// NormalizeL2 returns a copy of v scaled to unit L2 norm.
func NormalizeL2(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	out := make([]float64, len(v))
	n := math.Sqrt(sum)
	if n == 0 {
		copy(out, v)
		return out
	}
	inv := 1.0 / n
	for i := range v {
		out[i] = v[i] * inv
	}
	return out
}
