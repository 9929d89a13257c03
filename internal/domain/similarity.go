package domain

import (
	"strings"
	"unicode"
)

// stopwords carry no signal when comparing listing titles.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "to": {}, "with": {}, "at": {}, "by": {}, "from": {}, "or": {},
	"is": {}, "it": {}, "this": {}, "that": {}, "your": {}, "our": {},
	"best": {}, "new": {}, "buy": {}, "online": {}, "official": {}, "site": {},
}

// TitleTokens lowercases, strips punctuation and drops stopwords and
// tokens shorter than two characters.
// Example: "The Grand Hotel - Rooms & Suites" -> ["grand", "hotel", "rooms", "suites"]
func TitleTokens(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := normalizeToken(f)
		if len(tok) < 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TitleOverlap returns |A∩B| / min(|A|,|B|) over the distinct title tokens,
// or 0 when either title has no tokens.
func TitleOverlap(a, b string) float64 {
	setA := tokenSet(TitleTokens(a))
	setB := tokenSet(TitleTokens(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(shared) / float64(smaller)
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// normalizeToken keeps letters and digits only, lowercased.
func normalizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
