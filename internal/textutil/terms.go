package textutil

import (
	"math"
	"strings"
	"unicode"
)

// Terms counts the folded tokens of a transcript.
type Terms map[string]int

// CountTerms folds text and counts its tokens. Returns nil when text has no
// tokens.
func CountTerms(text string) Terms {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	terms := make(Terms, len(tokens))
	for _, tok := range tokens {
		terms[tok]++
	}
	return terms
}

// Tokenize folds text and splits it on anything that is neither a letter
// nor a digit. Labels are often single letters, so short tokens are kept.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Distinct returns the number of different tokens.
func (t Terms) Distinct() int { return len(t) }

func (t Terms) norm() float64 {
	sum := 0
	for _, n := range t {
		sum += n * n
	}
	return math.Sqrt(float64(sum))
}
