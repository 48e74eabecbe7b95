package post

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alwanrahmanas/kbli2020-matcher/common/backoff"
	"github.com/alwanrahmanas/kbli2020-matcher/llm"
)

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.response, s.err
}

func fastAdjudicator(s *stubCompleter) *Adjudicator {
	return &Adjudicator{LLM: s, Backoff: backoff.Policy{MaxAttempts: 1, Retryable: llm.IsRetryable}}
}

func testCandidates() []Candidate {
	return []Candidate{
		{Code: "47414", Title: "Perdagangan Eceran Telekomunikasi", Scope: "pulsa", Fused: 0.032},
		{Code: "56303", Title: "Rumah Minum Kedai Kopi", Scope: "kopi", Fused: 0.031},
	}
}

func TestAdjudicateAcceptsCandidateCodes(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [
			{"code": "47414", "title": "Perdagangan Eceran", "confidence": 0.96, "reasoning": "jual pulsa"}
		]
	}`})

	got := adj.Adjudicate(context.Background(), "jual pulsa", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "47414", got[0].Code)
	assert.InDelta(t, 0.96, got[0].Confidence, 1e-9)
	assert.False(t, got[0].Degraded)
	assert.False(t, got[0].Unmapped)
}

func TestAdjudicateRejectsCodesOutsideCandidateSet(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [
			{"code": "99999", "confidence": 0.9, "reasoning": "invented"},
			{"code": "56303", "confidence": 0.8, "reasoning": "kedai kopi"}
		]
	}`})

	got := adj.Adjudicate(context.Background(), "warung kopi", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "56303", got[0].Code)
}

func TestAdjudicateAllCodesInventedFallsBack(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [{"code": "99999", "confidence": 0.9, "reasoning": "invented"}]
	}`})

	got := adj.Adjudicate(context.Background(), "apapun", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "47414", got[0].Code, "fallback picks the top fused candidate")
	assert.True(t, got[0].Degraded)
	assert.InDelta(t, 0.5, got[0].Confidence, 1e-9)
}

func TestAdjudicateStripsMarkdownFences(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: "```json\n" + `{
		"classifications": [{"code": "47414", "confidence": 0.9, "reasoning": "ok"}]
	}` + "\n```"})

	got := adj.Adjudicate(context.Background(), "jual pulsa", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "47414", got[0].Code)
}

func TestAdjudicateUnmappedSentinel(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [{"code": "UNMAPPED", "confidence": 0, "reasoning": "tidak cocok"}]
	}`})

	got := adj.Adjudicate(context.Background(), "kegiatan aneh", testCandidates())
	require.Len(t, got, 1)
	assert.True(t, got[0].Unmapped)
	assert.Empty(t, got[0].Code)
}

func TestAdjudicateConfidenceClamped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"above one", `1.7`, 1.0},
		{"negative", `-0.3`, 0.0},
		{"in range", `0.42`, 0.42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := fastAdjudicator(&stubCompleter{response: `{
				"classifications": [{"code": "47414", "confidence": ` + tt.raw + `, "reasoning": "r"}]
			}`})
			got := adj.Adjudicate(context.Background(), "q", testCandidates())
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0].Confidence, 1e-9)
		})
	}
}

func TestAdjudicateProviderFailureFallsBack(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{err: llm.Timeout("stub", errors.New("deadline"))})

	got := adj.Adjudicate(context.Background(), "jual pulsa", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "47414", got[0].Code)
	assert.True(t, got[0].Degraded)
}

func TestAdjudicateUnparseableOutputFallsBack(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: "maaf, tidak ada JSON di sini"})

	got := adj.Adjudicate(context.Background(), "jual pulsa", testCandidates())
	require.Len(t, got, 1)
	assert.True(t, got[0].Degraded)
}

func TestAdjudicateNoCandidates(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: "irrelevant"})

	got := adj.Adjudicate(context.Background(), "apapun", nil)
	require.Len(t, got, 1)
	assert.True(t, got[0].Unmapped)
}

func TestAdjudicateFillsTitleFromCandidate(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [{"code": "56303", "confidence": 0.7, "reasoning": "r"}]
	}`})

	got := adj.Adjudicate(context.Background(), "kedai kopi", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "Rumah Minum Kedai Kopi", got[0].Title)
}

func TestUserPromptCapsCandidates(t *testing.T) {
	adj := fastAdjudicator(&stubCompleter{response: `{
		"classifications": [{"code": "47414", "confidence": 0.9, "reasoning": "r"}]
	}`})
	adj.MaxCandidates = 1

	// The second candidate is cut before prompting, so picking it would be
	// a contract violation and the call falls back to the first.
	got := adj.Adjudicate(context.Background(), "q", testCandidates())
	require.Len(t, got, 1)
	assert.Equal(t, "47414", got[0].Code)
}
