package catalog

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases text and splits it into alphanumeric terms, dropping
// single-character tokens. Indonesian has no inflectional casing worth
// preserving, so plain lowercase folding is enough.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
