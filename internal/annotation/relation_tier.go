package annotation

import (
	"slices"

	"annotcore/internal/corpuserr"
)

// RelationTier links pairs of intervals on a companion tier. Source and
// target may appear in either order.
type RelationTier struct {
	name      string
	companion *IntervalTier
	relations []Relation
}

// NewRelationTier binds relations to companion and checks every index.
func NewRelationTier(name string, companion *IntervalTier, relations []Relation) (*RelationTier, error) {
	if companion == nil {
		return nil, corpuserr.Validation("tier "+quoted(name), "relation tier requires a companion interval tier")
	}
	copied := slices.Clone(relations)
	for i := range copied {
		copied[i].Attributes = copied[i].Attributes.Clone()
	}
	tier := &RelationTier{name: name, companion: companion, relations: copied}
	if err := tier.Validate(); err != nil {
		return nil, err
	}
	return tier, nil
}

func (t *RelationTier) tier() {}

// Kind reports KindRelations.
func (t *RelationTier) Kind() Kind { return KindRelations }

func (t *RelationTier) Name() string             { return t.name }
func (t *RelationTier) Count() int               { return len(t.relations) }
func (t *RelationTier) IsEmpty() bool            { return len(t.relations) == 0 }
func (t *RelationTier) Clear()                   { t.relations = nil }
func (t *RelationTier) Companion() *IntervalTier { return t.companion }
func (t *RelationTier) Relations() []Relation    { return slices.Clone(t.relations) }

// Relation returns the relation at index i.
func (t *RelationTier) Relation(i int) (Relation, bool) {
	if i < 0 || i >= len(t.relations) {
		return Relation{}, false
	}
	return t.relations[i], true
}

// Validate checks both ends of every relation against the companion.
func (t *RelationTier) Validate() error {
	n := t.companion.Count()
	for i, r := range t.relations {
		if err := checkRange(t.name, "relation", i, r.IndexFrom, r.IndexTo, n, false); err != nil {
			return err
		}
	}
	return nil
}

// RemapIndices moves both ends of every relation onto new companion
// indices, where mapping[old] is the new index.
func (t *RelationTier) RemapIndices(mapping []int) error {
	remapped := slices.Clone(t.relations)
	for i := range remapped {
		r := &remapped[i]
		from, ok1 := remapIndex(mapping, r.IndexFrom)
		to, ok2 := remapIndex(mapping, r.IndexTo)
		if !ok1 || !ok2 {
			return checkRange(t.name, "relation", i, r.IndexFrom, r.IndexTo, len(mapping), false)
		}
		r.IndexFrom, r.IndexTo = from, to
	}
	t.relations = remapped
	return nil
}

// Endpoints returns the labels of the source and target intervals of
// relation i.
func (t *RelationTier) Endpoints(i int) (string, string, error) {
	r, ok := t.Relation(i)
	if !ok {
		return "", "", corpuserr.Validation("tier "+quoted(t.name), "relation index %d out of range", i)
	}
	from, ok1 := t.companion.Interval(r.IndexFrom)
	to, ok2 := t.companion.Interval(r.IndexTo)
	if !ok1 || !ok2 {
		return "", "", checkRange(t.name, "relation", i, r.IndexFrom, r.IndexTo, t.companion.Count(), false)
	}
	return from.Text, to.Text, nil
}

// CoveredText returns "source sep target" for relation i, skipping blank ends.
func (t *RelationTier) CoveredText(i int, sep string) (string, error) {
	from, to, err := t.Endpoints(i)
	if err != nil {
		return "", err
	}
	return joinNonEmpty(sep, from, to), nil
}

// DistinctLabels returns the labels in first-seen order.
func (t *RelationTier) DistinctLabels(attributeID string) []string {
	labels := make([]string, len(t.relations))
	for i, r := range t.relations {
		labels[i] = elementLabel(r.Text, r.Attributes, attributeID)
	}
	return distinct(labels)
}

// Replace substitutes before with after in every label.
func (t *RelationTier) Replace(attributeID, before, after string) {
	for i := range t.relations {
		r := &t.relations[i]
		if attributeID == "" {
			r.Text = replaceLabel(r.Text, before, after)
			continue
		}
		r.Attributes = replaceAttribute(r.Attributes, attributeID, before, after)
	}
}

// Relabel replaces every label with fn(label).
func (t *RelationTier) Relabel(attributeID string, fn func(string) string) {
	for i := range t.relations {
		r := &t.relations[i]
		if attributeID == "" {
			r.Text = fn(r.Text)
			continue
		}
		r.Attributes = relabelAttribute(r.Attributes, attributeID, fn)
	}
}

// FillEmptyWith relabels blank relations.
func (t *RelationTier) FillEmptyWith(attributeID, filler string) {
	t.Replace(attributeID, "", filler)
}
