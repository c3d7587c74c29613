package annotation

import (
	"slices"
	"sort"
)

// PointTier holds time-sorted points.
type PointTier struct {
	name   string
	tMin   RealTime
	tMax   RealTime
	points []Point
}

// NewPointTier sorts points by time and widens [tMin, tMax] to cover them.
func NewPointTier(name string, points []Point, tMin, tMax RealTime) *PointTier {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	if len(sorted) > 0 {
		tMin = MinTime(tMin, sorted[0].Time)
		tMax = MaxTime(tMax, sorted[len(sorted)-1].Time)
	}
	for i := range sorted {
		sorted[i].Attributes = sorted[i].Attributes.Clone()
	}
	return &PointTier{name: name, tMin: tMin, tMax: tMax, points: sorted}
}

func (t *PointTier) tier() {}

// Kind reports KindPoints.
func (t *PointTier) Kind() Kind { return KindPoints }

func (t *PointTier) Name() string    { return t.name }
func (t *PointTier) TMin() RealTime  { return t.tMin }
func (t *PointTier) TMax() RealTime  { return t.tMax }
func (t *PointTier) Count() int      { return len(t.points) }
func (t *PointTier) IsEmpty() bool   { return len(t.points) == 0 }
func (t *PointTier) Clear()          { t.points = nil }
func (t *PointTier) Points() []Point { return slices.Clone(t.points) }

// Point returns the point at index i.
func (t *PointTier) Point(i int) (Point, bool) {
	if i < 0 || i >= len(t.points) {
		return Point{}, false
	}
	return t.points[i], true
}

// IndexAt returns the index of the first point at or after time, or -1.
func (t *PointTier) IndexAt(time RealTime) int {
	i := sort.Search(len(t.points), func(i int) bool { return t.points[i].Time >= time })
	if i == len(t.points) {
		return -1
	}
	return i
}

// Between returns the points with tMin <= Time <= tMax.
func (t *PointTier) Between(tMin, tMax RealTime) []Point {
	start := sort.Search(len(t.points), func(i int) bool { return t.points[i].Time >= tMin })
	end := sort.Search(len(t.points), func(i int) bool { return t.points[i].Time > tMax })
	if start >= end {
		return nil
	}
	return slices.Clone(t.points[start:end])
}

// DistinctLabels returns the labels in first-seen order.
func (t *PointTier) DistinctLabels(attributeID string) []string {
	labels := make([]string, len(t.points))
	for i, p := range t.points {
		labels[i] = p.Label(attributeID)
	}
	return distinct(labels)
}

// Replace substitutes before with after in every label.
func (t *PointTier) Replace(attributeID, before, after string) {
	for i := range t.points {
		p := &t.points[i]
		if attributeID == "" {
			p.Text = replaceLabel(p.Text, before, after)
			continue
		}
		p.Attributes = replaceAttribute(p.Attributes, attributeID, before, after)
	}
}

// Relabel replaces every label with fn(label).
func (t *PointTier) Relabel(attributeID string, fn func(string) string) {
	for i := range t.points {
		p := &t.points[i]
		if attributeID == "" {
			p.Text = fn(p.Text)
			continue
		}
		p.Attributes = relabelAttribute(p.Attributes, attributeID, fn)
	}
}

// FillEmptyWith relabels blank points.
func (t *PointTier) FillEmptyWith(attributeID, filler string) {
	t.Replace(attributeID, "", filler)
}

// TimeShift moves every point by delta.
func (t *PointTier) TimeShift(delta RealTime) {
	t.tMin += delta
	t.tMax += delta
	for i := range t.points {
		t.points[i].Time += delta
	}
}
