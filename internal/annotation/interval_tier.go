package annotation

import (
	"slices"
	"sort"
	"strings"

	"annotcore/internal/corpuserr"
)

// IntervalTier is a contiguous run of intervals covering [TMin, TMax].
//
// Every exported mutator leaves the tier contiguous: for all i,
// Interval(i).TMax == Interval(i+1).TMin, the first interval starts at TMin
// and the last ends at TMax.
type IntervalTier struct {
	name      string
	tMin      RealTime
	tMax      RealTime
	intervals []Interval
}

// NewIntervalTier returns a tier holding one blank interval over [tMin, tMax].
func NewIntervalTier(name string, tMin, tMax RealTime) (*IntervalTier, error) {
	return BuildIntervalTier(name, nil, tMin, tMax, "")
}

// BuildIntervalTier sorts intervals by start time and fills every gap with a
// filler-labelled interval. The tier span is widened to cover all intervals.
// Overlapping input is rejected.
func BuildIntervalTier(name string, intervals []Interval, tMin, tMax RealTime, filler string) (*IntervalTier, error) {
	if tMin > tMax {
		return nil, corpuserr.Validation("tier "+quoted(name), "tMin %s is after tMax %s", tMin, tMax)
	}
	tier := &IntervalTier{name: name, tMin: tMin, tMax: tMax}
	if err := tier.assign(intervals, filler, true); err != nil {
		return nil, err
	}
	return tier, nil
}

// MustIntervalTier is BuildIntervalTier for inputs known to be valid.
func MustIntervalTier(name string, intervals []Interval, tMin, tMax RealTime) *IntervalTier {
	tier, err := BuildIntervalTier(name, intervals, tMin, tMax, "")
	if err != nil {
		panic(err)
	}
	return tier
}

func (t *IntervalTier) assign(intervals []Interval, filler string, widen bool) error {
	sorted := make([]Interval, 0, len(intervals))
	for _, intv := range intervals {
		if intv.TMin > intv.TMax {
			return corpuserr.Validation("tier "+quoted(t.name), "interval %s has tMin after tMax", intv)
		}
		sorted = append(sorted, intv.Clone())
	}
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		switch {
		case a.TMin < b.TMin:
			return -1
		case a.TMin > b.TMin:
			return 1
		case a.TMax < b.TMax:
			return -1
		case a.TMax > b.TMax:
			return 1
		}
		return 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].TMax > sorted[i].TMin {
			return corpuserr.Validation("tier "+quoted(t.name), "interval %s overlaps %s", sorted[i-1], sorted[i])
		}
	}
	if len(sorted) > 0 {
		first, last := sorted[0].TMin, sorted[len(sorted)-1].TMax
		if widen {
			t.tMin = MinTime(t.tMin, first)
			t.tMax = MaxTime(t.tMax, last)
		} else {
			t.tMin, t.tMax = first, last
		}
	}
	t.intervals = fillGaps(sorted, t.tMin, t.tMax, filler)
	return nil
}

func fillGaps(intervals []Interval, tMin, tMax RealTime, filler string) []Interval {
	out := make([]Interval, 0, len(intervals)+2)
	cursor := tMin
	for _, intv := range intervals {
		if cursor < intv.TMin {
			out = append(out, Interval{TMin: cursor, TMax: intv.TMin, Text: filler})
		}
		out = append(out, intv)
		cursor = intv.TMax
	}
	if cursor < tMax || len(out) == 0 {
		out = append(out, Interval{TMin: cursor, TMax: tMax, Text: filler})
	}
	return out
}

func (t *IntervalTier) tier() {}

// Kind reports KindIntervals.
func (t *IntervalTier) Kind() Kind { return KindIntervals }

// Name returns the tier name.
func (t *IntervalTier) Name() string { return t.name }

// SetName renames the tier.
func (t *IntervalTier) SetName(name string) { t.name = name }

// TMin returns the start of the tier.
func (t *IntervalTier) TMin() RealTime { return t.tMin }

// TMax returns the end of the tier.
func (t *IntervalTier) TMax() RealTime { return t.tMax }

// Count returns the number of intervals.
func (t *IntervalTier) Count() int { return len(t.intervals) }

// IsEmpty reports whether the tier holds only blank intervals.
func (t *IntervalTier) IsEmpty() bool {
	for _, intv := range t.intervals {
		if intv.Text != "" {
			return false
		}
	}
	return true
}

// Clear resets the tier to one blank interval over its span.
func (t *IntervalTier) Clear() {
	t.intervals = []Interval{{TMin: t.tMin, TMax: t.tMax}}
}

// Interval returns the interval at index i.
func (t *IntervalTier) Interval(i int) (Interval, bool) {
	if i < 0 || i >= len(t.intervals) {
		return Interval{}, false
	}
	return t.intervals[i], true
}

// Intervals returns a copy of the intervals in time order.
func (t *IntervalTier) Intervals() []Interval {
	out := make([]Interval, len(t.intervals))
	for i, intv := range t.intervals {
		out[i] = intv.Clone()
	}
	return out
}

// SetText relabels interval i.
func (t *IntervalTier) SetText(i int, text string) error {
	if i < 0 || i >= len(t.intervals) {
		return t.indexError(i)
	}
	t.intervals[i].Text = text
	return nil
}

// SetAttribute sets an attribute on interval i.
func (t *IntervalTier) SetAttribute(i int, attributeID string, value any) error {
	if i < 0 || i >= len(t.intervals) {
		return t.indexError(i)
	}
	t.intervals[i].SetAttribute(attributeID, value)
	return nil
}

// IndexAt returns the index of the interval containing time, or -1 when
// time lies outside the tier. Intervals are half-open except the last one,
// which also owns TMax.
func (t *IntervalTier) IndexAt(time RealTime) int {
	if time < t.tMin || time > t.tMax || len(t.intervals) == 0 {
		return -1
	}
	i := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].TMax > time
	})
	if i == len(t.intervals) {
		return len(t.intervals) - 1
	}
	return i
}

// At returns the interval containing time.
func (t *IntervalTier) At(time RealTime) (Interval, bool) {
	return t.Interval(t.IndexAt(time))
}

// ContainedIn returns the intervals lying entirely inside [tMin, tMax].
func (t *IntervalTier) ContainedIn(tMin, tMax RealTime) []Interval {
	start := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].TMin >= tMin
	})
	var out []Interval
	for i := start; i < len(t.intervals) && t.intervals[i].TMax <= tMax; i++ {
		out = append(out, t.intervals[i].Clone())
	}
	return out
}

// Overlapping returns the intervals whose open span intersects (tMin, tMax).
func (t *IntervalTier) Overlapping(tMin, tMax RealTime) []Interval {
	window := Interval{TMin: tMin, TMax: tMax}
	start := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].TMax > tMin
	})
	var out []Interval
	for i := start; i < len(t.intervals) && t.intervals[i].TMin < tMax; i++ {
		if t.intervals[i].Overlaps(window) {
			out = append(out, t.intervals[i].Clone())
		}
	}
	return out
}

// MergeIdenticalAnnotations coalesces adjacent intervals carrying the same
// text. With a non-empty marker only runs labelled marker are merged. The
// merged interval keeps the attributes of the first interval of its run.
// Applying it twice gives the same tier as applying it once.
//
// The result maps every old interval index to the index of the interval it
// ended up in; pass it to RemapIndices of the dependent tiers.
func (t *IntervalTier) MergeIdenticalAnnotations(marker string) []int {
	mapping := make([]int, len(t.intervals))
	out := t.intervals[:0:0]
	for i, intv := range t.intervals {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.Text == intv.Text && (marker == "" || intv.Text == marker) {
				prev.TMax = intv.TMax
				mapping[i] = n - 1
				continue
			}
		}
		mapping[i] = len(out)
		out = append(out, intv)
	}
	t.intervals = out
	return mapping
}

// FillGaps inserts filler intervals wherever the tier is not covered.
// Tiers built through this package are always contiguous; FillGaps exists for
// tiers whose intervals were assembled by ReplaceAll with a different span.
func (t *IntervalTier) FillGaps(filler string) {
	t.intervals = fillGaps(t.intervals, t.tMin, t.tMax, filler)
}

// FillEmptyWith relabels blank intervals. An empty attributeID targets Text.
func (t *IntervalTier) FillEmptyWith(attributeID, filler string) {
	for i := range t.intervals {
		if t.intervals[i].Label(attributeID) == "" {
			t.intervals[i].SetAttribute(attributeID, filler)
		}
	}
}

// Replace substitutes before with after in every label. An empty before only
// fills blank labels.
func (t *IntervalTier) Replace(attributeID, before, after string) {
	for i := range t.intervals {
		intv := &t.intervals[i]
		if attributeID == "" {
			intv.Text = replaceLabel(intv.Text, before, after)
			continue
		}
		intv.Attributes = replaceAttribute(intv.Attributes, attributeID, before, after)
	}
}

// Relabel replaces every label with fn(label).
func (t *IntervalTier) Relabel(attributeID string, fn func(string) string) {
	for i := range t.intervals {
		intv := &t.intervals[i]
		if attributeID == "" {
			intv.Text = fn(intv.Text)
			continue
		}
		intv.Attributes = relabelAttribute(intv.Attributes, attributeID, fn)
	}
}

// DistinctLabels returns the labels in first-seen order.
func (t *IntervalTier) DistinctLabels(attributeID string) []string {
	labels := make([]string, len(t.intervals))
	for i, intv := range t.intervals {
		labels[i] = intv.Label(attributeID)
	}
	return distinct(labels)
}

// ReplaceAll swaps in a new set of intervals; the tier span becomes the span
// of the new intervals. An empty set clears the tier.
func (t *IntervalTier) ReplaceAll(intervals []Interval) error {
	if len(intervals) == 0 {
		t.Clear()
		return nil
	}
	return t.assign(intervals, "", false)
}

// Split cuts the interval containing at into two. The left part keeps the
// label and attributes; the right part is blank. It returns the index of the
// right part.
func (t *IntervalTier) Split(at RealTime) (int, error) {
	i := t.IndexAt(at)
	if i < 0 {
		return -1, corpuserr.Validation("tier "+quoted(t.name), "split time %s outside [%s, %s]", at, t.tMin, t.tMax)
	}
	orig := t.intervals[i]
	if at <= orig.TMin || at >= orig.TMax {
		return -1, corpuserr.Validation("tier "+quoted(t.name), "split time %s is on a boundary", at)
	}
	left := orig
	left.TMax = at
	right := Interval{TMin: at, TMax: orig.TMax}
	t.intervals = slices.Replace(t.intervals, i, i+1, left, right)
	return i + 1, nil
}

// Merge joins intervals from..to into one whose text is their texts joined
// by sep. Attributes come from the first interval.
func (t *IntervalTier) Merge(from, to int, sep string) error {
	if from < 0 || to >= len(t.intervals) || from > to {
		return corpuserr.Validation("tier "+quoted(t.name), "merge range %d..%d out of bounds (count %d)", from, to, len(t.intervals))
	}
	merged := t.intervals[from].Clone()
	merged.TMax = t.intervals[to].TMax
	merged.Text = t.Text(from, to, sep)
	t.intervals = slices.Replace(t.intervals, from, to+1, merged)
	return nil
}

// MoveBoundary moves the start of interval i (and the end of interval i-1)
// to at. The move may not collapse the previous interval nor pass the end of
// interval i.
func (t *IntervalTier) MoveBoundary(i int, at RealTime) error {
	if i <= 0 || i >= len(t.intervals) {
		return t.indexError(i)
	}
	if at <= t.intervals[i-1].TMin || at > t.intervals[i].TMax {
		return corpuserr.Validation("tier "+quoted(t.name), "boundary %d cannot move to %s", i, at)
	}
	t.intervals[i-1].TMax = at
	t.intervals[i].TMin = at
	return nil
}

// TimeShift moves the whole tier by delta.
func (t *IntervalTier) TimeShift(delta RealTime) {
	t.tMin += delta
	t.tMax += delta
	for i := range t.intervals {
		t.intervals[i].TMin += delta
		t.intervals[i].TMax += delta
	}
}

// Text joins the labels of intervals from..to (inclusive) with sep. Out of
// range indexes are clamped.
func (t *IntervalTier) Text(from, to int, sep string) string {
	from = max(from, 0)
	to = min(to, len(t.intervals)-1)
	if from > to {
		return ""
	}
	parts := make([]string, 0, to-from+1)
	for _, intv := range t.intervals[from : to+1] {
		parts = append(parts, intv.Text)
	}
	return strings.Join(parts, sep)
}

// Context returns the labels of up to n intervals on each side of i, with
// interval i wrapped in brackets.
func (t *IntervalTier) Context(i, n int, sep string) string {
	if i < 0 || i >= len(t.intervals) {
		return ""
	}
	var parts []string
	if left := t.Text(i-n, i-1, sep); left != "" {
		parts = append(parts, left)
	}
	parts = append(parts, "["+t.intervals[i].Text+"]")
	if right := t.Text(i+1, i+n, sep); right != "" {
		parts = append(parts, right)
	}
	return strings.Join(parts, sep)
}

// Clone returns a deep copy.
func (t *IntervalTier) Clone() *IntervalTier {
	return &IntervalTier{name: t.name, tMin: t.tMin, tMax: t.tMax, intervals: t.Intervals()}
}

func (t *IntervalTier) indexError(i int) error {
	return corpuserr.Validation("tier "+quoted(t.name), "interval index %d out of range (count %d)", i, len(t.intervals))
}

func quoted(name string) string {
	return `"` + name + `"`
}
