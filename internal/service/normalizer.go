// Package service implements the deterministic specialty-mapping engine:
// normalization, domain classification, parent-bucket resolution, hard-map
// rule evaluation, fuzzy candidate scoring, and the decision engine that
// orchestrates them per request.
package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics folds accented characters to their ASCII base form
// (e.g. "Pédiatrie" -> "Pediatrie").
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// smartPunct maps common Unicode look-alikes to ASCII equivalents.
var smartPunct = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "″", `"`,
	"–", "-", "—", "-", "―", "-",
	"…", "...",
	" ", " ",
)

// separators are label punctuation mapped to a single canonical separator
// (space). Hyphens are intentionally not separators: tokens like
// "non-invasive" must survive normalization intact.
var separators = strings.NewReplacer(
	"/", " ", "&", " ", ":", " ", ";", " ", "+", " ", ",", " ", "|", " ",
)

// surroundingPunct is stripped from the ends of the normalized string only.
const surroundingPunct = " \t.()[]{}\"'*#-_"

// Normalizer is the pure text-canonicalization stage of the engine. It is
// deterministic, total, and idempotent: Normalize never fails and
// Normalize(Normalize(x)) == Normalize(x) for all x.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize canonicalizes a raw specialty label. An empty input normalizes
// to the empty string, which always resolves to undecided downstream.
func (n *Normalizer) Normalize(text string) string {
	s := smartPunct.Replace(text)

	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = separators.Replace(s)
	s = collapseWhitespace(s)
	s = strings.Trim(s, surroundingPunct)
	return collapseWhitespace(s)
}

// Tokens splits a normalized string into whole tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// containsToken reports whether token appears as a whole token in the
// normalized text.
func containsToken(normalized, token string) bool {
	for _, t := range Tokens(normalized) {
		if t == token {
			return true
		}
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
