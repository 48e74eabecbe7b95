package lookup

import (
	"regexp"
	"strings"

	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/schema"
)

// Table is the legacy exact-code path: when an input cell already carries a
// KBLI code, resolve it directly instead of running the retrieval pipeline.
type Table struct {
	index *catalog.Index
}

func New(idx *catalog.Index) *Table { return &Table{index: idx} }

var (
	fiveDigit  = regexp.MustCompile(`\b(\d{5})\b`)
	shortDigit = regexp.MustCompile(`\b(\d{2,4})\b`)
)

// ExtractCodes pulls candidate KBLI codes out of free text: 5-digit numbers
// first, falling back to 2-4 digit category codes when none are present.
// Duplicates are removed preserving first-seen order.
func ExtractCodes(text string) []string {
	if text == "" {
		return nil
	}
	codes := fiveDigit.FindAllString(text, -1)
	if len(codes) == 0 {
		codes = shortDigit.FindAllString(text, -1)
	}
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Resolve short-circuits text that contains explicit catalog codes. It
// returns ok=false when no extracted code resolves, so the caller falls
// through to the full pipeline.
func (t *Table) Resolve(text string) ([]schema.Classification, bool) {
	codes := ExtractCodes(text)
	if len(codes) == 0 {
		return nil, false
	}
	results := make([]schema.Classification, 0, len(codes))
	for _, code := range codes {
		entry, ok := t.index.ByCode(code)
		if !ok && len(code) < 5 {
			// Short codes are stored zero-padded in some sources.
			entry, ok = t.index.ByCode(padCode(code))
		}
		if !ok {
			continue
		}
		results = append(results, schema.Classification{
			Code:       entry.Code,
			Title:      entry.Title,
			Confidence: 1.0,
			Reasoning:  "Kode KBLI eksplisit ditemukan pada input.",
		})
	}
	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

func padCode(code string) string {
	return strings.Repeat("0", 5-len(code)) + code
}
