package annotation

import (
	"slices"
	"strings"

	"annotcore/internal/corpuserr"
)

// SequenceTier groups index ranges of a companion interval tier.
//
// Sequences refer to the companion by index. Mutating the companion after
// the tier is built can leave sequences pointing past its end; Validate
// detects that, nothing prevents it.
type SequenceTier struct {
	name      string
	companion *IntervalTier
	sequences []Sequence
}

// NewSequenceTier binds sequences to companion and checks every index range.
func NewSequenceTier(name string, companion *IntervalTier, sequences []Sequence) (*SequenceTier, error) {
	if companion == nil {
		return nil, corpuserr.Validation("tier "+quoted(name), "sequence tier requires a companion interval tier")
	}
	sorted := slices.Clone(sequences)
	slices.SortStableFunc(sorted, func(a, b Sequence) int {
		if a.IndexFrom != b.IndexFrom {
			return a.IndexFrom - b.IndexFrom
		}
		return a.IndexTo - b.IndexTo
	})
	for i := range sorted {
		sorted[i].Attributes = sorted[i].Attributes.Clone()
	}
	tier := &SequenceTier{name: name, companion: companion, sequences: sorted}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	return tier, nil
}

func (t *SequenceTier) tier() {}

// Kind reports KindSequences.
func (t *SequenceTier) Kind() Kind { return KindSequences }

func (t *SequenceTier) Name() string             { return t.name }
func (t *SequenceTier) Count() int               { return len(t.sequences) }
func (t *SequenceTier) IsEmpty() bool            { return len(t.sequences) == 0 }
func (t *SequenceTier) Clear()                   { t.sequences = nil }
func (t *SequenceTier) Companion() *IntervalTier { return t.companion }
func (t *SequenceTier) Sequences() []Sequence    { return slices.Clone(t.sequences) }

// Sequence returns the sequence at index i.
func (t *SequenceTier) Sequence(i int) (Sequence, bool) {
	if i < 0 || i >= len(t.sequences) {
		return Sequence{}, false
	}
	return t.sequences[i], true
}

// Validate checks 0 <= IndexFrom <= IndexTo < companion count for every
// sequence.
func (t *SequenceTier) Validate() error {
	n := t.companion.Count()
	for i, s := range t.sequences {
		if err := checkRange(t.name, "sequence", i, s.IndexFrom, s.IndexTo, n, true); err != nil {
			return err
		}
	}
	return nil
}

// RemapIndices moves every sequence onto new companion indices, where
// mapping[old] is the new index. The mapping must be non-decreasing, as
// returned by MergeIdenticalAnnotations.
func (t *SequenceTier) RemapIndices(mapping []int) error {
	remapped := slices.Clone(t.sequences)
	for i := range remapped {
		s := &remapped[i]
		from, ok1 := remapIndex(mapping, s.IndexFrom)
		to, ok2 := remapIndex(mapping, s.IndexTo)
		if !ok1 || !ok2 {
			return checkRange(t.name, "sequence", i, s.IndexFrom, s.IndexTo, len(mapping), true)
		}
		s.IndexFrom, s.IndexTo = from, to
	}
	t.sequences = remapped
	return nil
}

// CoveredText rebuilds the text of sequence i from the companion intervals.
func (t *SequenceTier) CoveredText(i int, sep string) (string, error) {
	s, ok := t.Sequence(i)
	if !ok {
		return "", corpuserr.Validation("tier "+quoted(t.name), "sequence index %d out of range", i)
	}
	if err := checkRange(t.name, "sequence", i, s.IndexFrom, s.IndexTo, t.companion.Count(), true); err != nil {
		return "", err
	}
	return t.companion.Text(s.IndexFrom, s.IndexTo, sep), nil
}

// Span returns the time covered by sequence i on the companion.
func (t *SequenceTier) Span(i int) (RealTime, RealTime, bool) {
	s, ok := t.Sequence(i)
	if !ok {
		return 0, 0, false
	}
	first, ok1 := t.companion.Interval(s.IndexFrom)
	last, ok2 := t.companion.Interval(s.IndexTo)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return first.TMin, last.TMax, true
}

// DistinctLabels returns the labels in first-seen order.
func (t *SequenceTier) DistinctLabels(attributeID string) []string {
	labels := make([]string, len(t.sequences))
	for i, s := range t.sequences {
		labels[i] = elementLabel(s.Text, s.Attributes, attributeID)
	}
	return distinct(labels)
}

// Replace substitutes before with after in every label.
func (t *SequenceTier) Replace(attributeID, before, after string) {
	for i := range t.sequences {
		s := &t.sequences[i]
		if attributeID == "" {
			s.Text = replaceLabel(s.Text, before, after)
			continue
		}
		s.Attributes = replaceAttribute(s.Attributes, attributeID, before, after)
	}
}

// Relabel replaces every label with fn(label).
func (t *SequenceTier) Relabel(attributeID string, fn func(string) string) {
	for i := range t.sequences {
		s := &t.sequences[i]
		if attributeID == "" {
			s.Text = fn(s.Text)
			continue
		}
		s.Attributes = relabelAttribute(s.Attributes, attributeID, fn)
	}
}

// FillEmptyWith relabels blank sequences.
func (t *SequenceTier) FillEmptyWith(attributeID, filler string) {
	t.Replace(attributeID, "", filler)
}

func checkRange(tierName, what string, i, from, to, count int, ordered bool) error {
	inRange := func(x int) bool { return x >= 0 && x < count }
	if !inRange(from) || !inRange(to) || (ordered && from > to) {
		return corpuserr.Validation("tier "+quoted(tierName),
			"%s %d references intervals %d..%d, companion has %d", what, i, from, to, count)
	}
	return nil
}

func remapIndex(mapping []int, i int) (int, bool) {
	if i < 0 || i >= len(mapping) {
		return 0, false
	}
	return mapping[i], true
}

func elementLabel(text string, attrs Attributes, attributeID string) string {
	if attributeID == "" {
		return text
	}
	return attrs.String(attributeID)
}

// joinNonEmpty is used by relation labels.
func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
