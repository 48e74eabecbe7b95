package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

func list(codes ...string) []schema.Candidate {
	out := make([]schema.Candidate, len(codes))
	for i, c := range codes {
		out[i] = schema.Candidate{Code: c, Score: float64(len(codes) - i)}
	}
	return out
}

func TestRRFDoubleFirstPlaceHasMaximalScore(t *testing.T) {
	lex := list("47414", "56303", "10710")
	vec := list("47414", "10710", "56303")

	fused := RRF([][]schema.Candidate{lex, vec}, RankConstant, 0)
	require.NotEmpty(t, fused)
	assert.Equal(t, "47414", fused[0].Code)
	assert.InDelta(t, 2.0/61.0, fused[0].Score, 1e-12)
	for _, c := range fused[1:] {
		assert.Less(t, c.Score, fused[0].Score)
	}
}

func TestRRFOutputIsUnionOfInputs(t *testing.T) {
	lex := list("47414", "56303")
	vec := list("10710")

	fused := RRF([][]schema.Candidate{lex, vec}, RankConstant, 0)
	codes := make(map[string]bool)
	for _, c := range fused {
		codes[c.Code] = true
	}
	assert.Len(t, codes, 3)
	assert.True(t, codes["10710"], "vector-only candidate must survive fusion")
}

func TestRRFTwoListsBeatOne(t *testing.T) {
	// A code present in both lists outscores the same code in just one.
	single := RRF([][]schema.Candidate{list("47414")}, RankConstant, 0)
	double := RRF([][]schema.Candidate{list("47414"), list("47414")}, RankConstant, 0)
	require.Len(t, single, 1)
	require.Len(t, double, 1)
	assert.Greater(t, double[0].Score, single[0].Score)
}

func TestRRFTieBrokenByAscendingCode(t *testing.T) {
	// Two codes each ranked first in exactly one list tie on score.
	fused := RRF([][]schema.Candidate{list("56303"), list("47414")}, RankConstant, 0)
	require.Len(t, fused, 2)
	assert.Equal(t, "47414", fused[0].Code)
	assert.Equal(t, "56303", fused[1].Code)
}

func TestRRFOrderIndependentOfListOrder(t *testing.T) {
	lex := list("47414", "56303", "10710")
	vec := list("10710", "47414")

	a := RRF([][]schema.Candidate{lex, vec}, RankConstant, 0)
	b := RRF([][]schema.Candidate{vec, lex}, RankConstant, 0)
	assert.Equal(t, a, b)
}

func TestRRFTruncatesToLimit(t *testing.T) {
	lex := list("47414", "56303", "10710", "01111", "96121")
	fused := RRF([][]schema.Candidate{lex}, RankConstant, 3)
	assert.Len(t, fused, 3)
}

func TestRRFEmptyAndSingleList(t *testing.T) {
	assert.Empty(t, RRF(nil, RankConstant, 0))
	assert.Empty(t, RRF([][]schema.Candidate{}, RankConstant, 0))

	fused := RRF([][]schema.Candidate{list("47414", "56303")}, RankConstant, 0)
	require.Len(t, fused, 2)
	assert.Equal(t, "47414", fused[0].Code)
}
