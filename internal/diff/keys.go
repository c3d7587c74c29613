package diff

import (
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/textutil"
)

// Names of the interval keys accepted by ParseKey.
const (
	KeyText      = "text"
	KeyAttribute = "attribute"
	KeyFolded    = "folded"
)

// TextKey compares intervals by label.
func TextKey(iv annotation.Interval) string { return iv.Text }

// FoldedKey compares labels ignoring case, diacritics and spacing.
func FoldedKey(iv annotation.Interval) string { return textutil.Fold(iv.Text) }

// AttributeKey compares intervals by the display form of one attribute.
func AttributeKey(attributeID string) Key[annotation.Interval] {
	return func(iv annotation.Interval) string { return iv.Label(attributeID) }
}

// ParseKey resolves a configured key name.
func ParseKey(name, attributeID string) (Key[annotation.Interval], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", KeyText:
		return TextKey, nil
	case KeyFolded:
		return FoldedKey, nil
	case KeyAttribute:
		if strings.TrimSpace(attributeID) == "" {
			return nil, corpuserr.Validation("diff key", "attribute key needs an attribute id")
		}
		return AttributeKey(attributeID), nil
	}
	return nil, corpuserr.Validation("diff key", "unknown key %q", name)
}
