package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Fold returns the comparison form of a label: compatibility decomposed,
// stripped of combining marks, case folded and with whitespace runs
// collapsed to one space. "Café", "CAFE" and "café" fold alike.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		stripped = s
	}
	return collapseSpaces(folder.String(stripped))
}

// Tidy normalises a label for storage: NFC composition, trimmed, internal
// whitespace collapsed. Case and diacritics are preserved.
func Tidy(s string) string {
	return collapseSpaces(norm.NFC.String(s))
}

// NeedsTidy reports whether Tidy would change s.
func NeedsTidy(s string) bool {
	return Tidy(s) != s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
