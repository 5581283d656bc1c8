package similarity

import (
	"strings"
	"unicode"
)

// stopwords are dropped before weighting. Short and common English terms
// only; the catalog text is titles, authors and descriptions, so a compact
// list covers almost all of the noise.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {}, "has": {},
	"he": {}, "her": {}, "his": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "she": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// Tokenize lowercases, splits on non-alphanumeric runes, and drops tokens
// shorter than two characters plus stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlnum(r)
	})

	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) < 2 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
