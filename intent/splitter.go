package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alwanrahmanas/kbli2020-matcher/common/backoff"
	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/llm"
)

// Splitter decomposes a compound business-activity description into
// independent atomic phrases via a language-model call. It is strictly
// fail-open: any provider failure or malformed output collapses to a single
// intent equal to the raw input, never to an error.
type Splitter struct {
	LLM     llm.Completer
	Backoff backoff.Policy
}

func NewSplitter(provider llm.Completer) *Splitter {
	p := backoff.Default()
	p.Retryable = llm.IsRetryable
	return &Splitter{LLM: provider, Backoff: p}
}

const splitPromptFormat = `Pecah deskripsi kegiatan usaha berikut menjadi kegiatan usaha terpisah.
Jika hanya ada 1 kegiatan, kembalikan hanya 1 item.
Output HANYA JSON array of strings, tanpa penjelasan.

Deskripsi: "%s"

Contoh output: ["Jual pulsa", "Jual nasi goreng"]`

var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// Split returns the ordered atomic activity phrases found in text.
// Single-activity text comes back as a one-element list.
func (s *Splitter) Split(ctx context.Context, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{text}
	}

	var raw string
	err := s.Backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.LLM.Complete(ctx, "", fmt.Sprintf(splitPromptFormat, text))
		return err
	})
	if err != nil {
		logger.Warnf("intent: split call failed, using whole input: %v", err)
		return []string{text}
	}

	intents := parseIntents(raw)
	if len(intents) == 0 {
		logger.Warnf("intent: unparseable split output %q, using whole input", snippet(raw))
		return []string{text}
	}
	return intents
}

// parseIntents extracts a JSON string array from the raw model output.
// Anything that does not decode to at least one non-blank string fails.
func parseIntents(raw string) []string {
	match := arrayPattern.FindString(raw)
	if match == "" {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil
	}
	intents := make([]string, 0, len(parsed))
	for _, p := range parsed {
		if p = strings.TrimSpace(p); p != "" {
			intents = append(intents, p)
		}
	}
	return intents
}

func snippet(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
