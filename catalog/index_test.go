package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

func testEntries() []schema.Entry {
	return []schema.Entry{
		{
			Code:          "47414",
			Title:         "Perdagangan Eceran Peralatan Telekomunikasi",
			HierarchyPath: []string{"G", "47", "474"},
			ScopeText:     "Perdagangan eceran pulsa dan kartu perdana",
			Embedding:     []float64{1, 0, 0},
		},
		{
			Code:          "56303",
			Title:         "Rumah Minum Kedai Kopi",
			HierarchyPath: []string{"I", "56", "563"},
			ScopeText:     "Penyediaan minuman kopi siap konsumsi",
			Embedding:     []float64{0, 1, 0},
		},
		{
			Code:          "10710",
			Title:         "Industri Produk Roti dan Kue",
			HierarchyPath: []string{"C", "10", "107"},
			ScopeText:     "Pembuatan roti kue kering dan sejenisnya",
			Embedding:     []float64{0, 0, 1},
		},
	}
}

func TestBuildSkipsNonLeafRecords(t *testing.T) {
	records := append(testEntries(),
		schema.Entry{Code: "G", Title: "Perdagangan Besar Dan Eceran", Embedding: []float64{1, 1, 1}},
		schema.Entry{Code: "474", Title: "Perdagangan Eceran Khusus", Embedding: []float64{1, 1, 1}},
	)
	idx, err := Build(records)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	_, ok := idx.ByCode("474")
	assert.False(t, ok)
}

func TestBuildIntegrityErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]schema.Entry) []schema.Entry
		wantErr string
	}{
		{
			name:    "empty collection",
			mutate:  func([]schema.Entry) []schema.Entry { return nil },
			wantErr: "no valid 5-digit entries",
		},
		{
			name: "duplicate code",
			mutate: func(e []schema.Entry) []schema.Entry {
				dup := e[0]
				return append(e, dup)
			},
			wantErr: "duplicate code 47414",
		},
		{
			name: "missing embedding",
			mutate: func(e []schema.Entry) []schema.Entry {
				e[1].Embedding = nil
				return e
			},
			wantErr: "no embedding",
		},
		{
			name: "dimension mismatch",
			mutate: func(e []schema.Entry) []schema.Entry {
				e[2].Embedding = []float64{1, 2}
				return e
			},
			wantErr: "dimension",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.mutate(testEntries()))
			require.Error(t, err)
			var ierr *IntegrityError
			require.ErrorAs(t, err, &ierr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := Build(testEntries())
	require.NoError(t, err)

	// Same records in a different order must produce the same index.
	shuffled := []schema.Entry{testEntries()[2], testEntries()[0], testEntries()[1]}
	b, err := Build(shuffled)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Entry(i).Code, b.Entry(i).Code)
		assert.Equal(t, a.DocLen(i), b.DocLen(i))
	}
	assert.Equal(t, a.AvgDocLen(), b.AvgDocLen())
}

func TestVectorsAreNormalized(t *testing.T) {
	idx, err := Build([]schema.Entry{
		{Code: "47414", Title: "t", ScopeText: "s", Embedding: []float64{3, 4}},
		{Code: "56303", Title: "u", ScopeText: "v", Embedding: []float64{5, 12}},
	})
	require.NoError(t, err)

	for i := 0; i < idx.Len(); i++ {
		norm := 0.0
		for _, x := range idx.Vector(i) {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}
}

func TestNormalizeL2ZeroVector(t *testing.T) {
	out := NormalizeL2([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, out)
}

func TestIDFNeverNegative(t *testing.T) {
	idx, err := Build(testEntries())
	require.NoError(t, err)

	// "dan" appears in most entries; +1 smoothing keeps its IDF positive.
	assert.Greater(t, idx.IDF("dan"), 0.0)
	assert.Equal(t, 0.0, idx.IDF("nonexistentterm"))
}
