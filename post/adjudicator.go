package post

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/alwanrahmanas/kbli2020-matcher/common/backoff"
	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/llm"
	"github.com/alwanrahmanas/kbli2020-matcher/metrics"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// Candidate is one fused retrieval candidate handed to the adjudicator,
// already resolved against the catalog.
type Candidate struct {
	Code  string
	Title string
	Scope string
	Fused float64
}

// Adjudicator makes the final classification decision for one intent. The
// model operates closed-world: it may only pick codes from the supplied
// candidate set, and anything else it returns is rejected and logged. On
// provider failure or unparseable output it degrades to the highest-fused
// candidate instead of failing the query.
type Adjudicator struct {
	LLM     llm.Completer
	Backoff backoff.Policy
	// MaxCandidates caps the candidate list in the prompt (default 15).
	MaxCandidates int
	// ScopeTokens caps each candidate's scope text in the prompt (default 150).
	ScopeTokens int
}

func NewAdjudicator(provider llm.Completer) *Adjudicator {
	p := backoff.Default()
	p.Retryable = llm.IsRetryable
	return &Adjudicator{LLM: provider, Backoff: p}
}

const adjudicateSystemPrompt = `You are an expert KBLI 2020 classifier for BPS Statistics Indonesia.
Classify the user's business activity description into one OR MORE of the supplied KBLI candidates.

Rules:
1. Only use codes from the candidate list below. Never invent other codes.
2. Bedakan jelas: PERDAGANGAN (jual beli tanpa merubah bentuk) vs INDUSTRI (ada proses produksi) vs JASA (layanan).
3. Assign a confidence score (0.0 - 1.0) for EACH code independently.
4. Explain your reasoning briefly referencing the "Cakupan".
5. If no candidate is a suitable match, output a single entry with code "UNMAPPED".

Response Format (JSON ONLY, no markdown):
{
  "classifications": [
    {
      "code": "47414",
      "title": "Perdagangan Eceran...",
      "confidence": 0.96,
      "reasoning": "..."
    }
  ]
}`

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

type parsedClassification struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type parsedResult struct {
	Classifications []parsedClassification `json:"classifications"`
}

// Adjudicate classifies query against cands. It always returns at least one
// classification; when nothing fits the single result carries Unmapped=true.
func (a *Adjudicator) Adjudicate(ctx context.Context, query string, cands []Candidate) []schema.Classification {
	if len(cands) == 0 {
		metrics.IncAdjudication("no_candidates")
		return []schema.Classification{{
			Unmapped:  true,
			Reasoning: "Tidak ada konteks yang relevan ditemukan dalam katalog KBLI.",
		}}
	}
	limit := a.MaxCandidates
	if limit <= 0 {
		limit = 15
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}

	var raw string
	err := a.Backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = a.LLM.Complete(ctx, adjudicateSystemPrompt, a.userPrompt(query, cands))
		return err
	})
	if err != nil {
		logger.Warnf("adjudicator: provider call failed for %q: %v", query, err)
		metrics.IncAdjudication("fallback")
		return fallback(cands)
	}

	out, ok := a.parse(raw, cands)
	if !ok {
		logger.Warnf("adjudicator: unparseable output for %q: %s", query, snippet(raw))
		metrics.IncAdjudication("fallback")
		return fallback(cands)
	}
	metrics.IncAdjudication("ok")
	return out
}

func (a *Adjudicator) userPrompt(query string, cands []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deskripsi Usaha: %q\n\nKandidat KBLI:\n", query)
	for i, c := range cands {
		fmt.Fprintf(&b, "%d. KODE: %s | JUDUL: %s | CAKUPAN: %s\n",
			i+1, c.Code, c.Title, truncateTokens(c.Scope, a.scopeBudget()))
	}
	b.WriteString("\nKlasifikasikan deskripsi di atas. Output JSON saja.")
	return b.String()
}

func (a *Adjudicator) scopeBudget() int {
	if a.ScopeTokens > 0 {
		return a.ScopeTokens
	}
	return 150
}

// parse validates the model output against the documented schema and the
// closed-world candidate set. Codes outside the set are dropped and logged,
// never silently kept.
func (a *Adjudicator) parse(raw string, cands []Candidate) ([]schema.Classification, bool) {
	content := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var parsed parsedResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, false
	}
	if len(parsed.Classifications) == 0 {
		return nil, false
	}

	byCode := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		byCode[c.Code] = c
	}

	mapped := make([]schema.Classification, 0, len(parsed.Classifications))
	unmapped := false
	for _, p := range parsed.Classifications {
		code := strings.TrimSpace(p.Code)
		if strings.EqualFold(code, "UNMAPPED") {
			unmapped = true
			continue
		}
		cand, ok := byCode[code]
		if !ok {
			logger.Warnf("adjudicator: rejected code %q outside candidate set", code)
			metrics.IncAdjudication("contract_violation")
			continue
		}
		title := p.Title
		if title == "" {
			title = cand.Title
		}
		mapped = append(mapped, schema.Classification{
			Code:       code,
			Title:      title,
			Confidence: clamp01(p.Confidence),
			Reasoning:  p.Reasoning,
		})
	}
	if len(mapped) > 0 {
		return mapped, true
	}
	if unmapped {
		return []schema.Classification{{
			Unmapped:  true,
			Reasoning: "Tidak ada kandidat yang cocok menurut penilaian model.",
		}}, true
	}
	// Every returned code violated the contract.
	return nil, false
}

// fallback returns the highest-fused candidate with a rank-derived
// confidence, flagged as degraded since no model reasoning is available.
func fallback(cands []Candidate) []schema.Classification {
	top := cands[0]
	return []schema.Classification{{
		Code:       top.Code,
		Title:      top.Title,
		Confidence: 1.0 / 2.0, // rank-derived: 1/(1+rank), top candidate
		Reasoning:  "Kandidat teratas hasil fusi peringkat; penilaian model tidak tersedia.",
		Degraded:   true,
	}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func snippet(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// truncateTokens caps text at n tokens of the cl100k_base vocabulary. When
// the encoding is unavailable (offline), it falls back to rune truncation
// at roughly four runes per token.
func truncateTokens(text string, n int) string {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warnf("adjudicator: tiktoken unavailable, using rune truncation: %v", err)
			return
		}
		enc = e
	})
	if enc == nil {
		runes := []rune(text)
		if len(runes) > n*4 {
			return string(runes[:n*4])
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return enc.Decode(tokens[:n])
}
