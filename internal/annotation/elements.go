package annotation

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"annotcore/internal/corpuserr"
)

// PauseMarker is the reserved label of silent pause intervals.
const PauseMarker = "_"

// Attributes maps attribute IDs to values. Values are string, int64,
// float64, bool, time.Time or nil, matching the declared attribute data
// types.
type Attributes map[string]any

// Clone returns a shallow copy; nil stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// String returns the display form of an attribute value, "" when absent.
func (a Attributes) String(id string) string {
	return ValueString(a[id])
}

// ValueString formats an attribute value for display and comparison.
func ValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

// Interval is a labelled time span.
type Interval struct {
	TMin       RealTime
	TMax       RealTime
	Text       string
	Attributes Attributes
}

// NewInterval validates tMin <= tMax.
func NewInterval(tMin, tMax RealTime, text string) (Interval, error) {
	if tMin > tMax {
		return Interval{}, corpuserr.Validation("interval", "tMin %s is after tMax %s", tMin, tMax)
	}
	return Interval{TMin: tMin, TMax: tMax, Text: text}, nil
}

// Duration returns TMax - TMin.
func (i Interval) Duration() RealTime { return i.TMax - i.TMin }

// Center returns the midpoint.
func (i Interval) Center() RealTime { return i.TMin + (i.TMax-i.TMin)/2 }

// IsPause reports whether the interval is a silent pause.
func (i Interval) IsPause() bool { return i.Text == PauseMarker }

// IsBlank reports whether the interval carries no label.
func (i Interval) IsBlank() bool { return i.Text == "" }

// Contains reports whether t lies inside [TMin, TMax].
func (i Interval) Contains(t RealTime) bool { return t >= i.TMin && t <= i.TMax }

// Overlaps reports whether the open spans intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.TMin < other.TMax && i.TMax > other.TMin
}

// Attribute returns the value of an attribute; the empty ID selects Text.
func (i Interval) Attribute(id string) any {
	if id == "" {
		return i.Text
	}
	return i.Attributes[id]
}

// Label returns Text or the string form of an attribute.
func (i Interval) Label(attributeID string) string {
	if attributeID == "" {
		return i.Text
	}
	return i.Attributes.String(attributeID)
}

// SetAttribute sets an attribute value, allocating the map when needed.
func (i *Interval) SetAttribute(id string, value any) {
	if id == "" {
		i.Text = ValueString(value)
		return
	}
	if i.Attributes == nil {
		i.Attributes = Attributes{}
	}
	i.Attributes[id] = value
}

// Clone returns a copy that shares no attribute map.
func (i Interval) Clone() Interval {
	i.Attributes = i.Attributes.Clone()
	return i
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s] %q", i.TMin, i.TMax, i.Text)
}

// Point is a labelled instant.
type Point struct {
	Time       RealTime
	Text       string
	Attributes Attributes
}

// Label returns Text or the string form of an attribute.
func (p Point) Label(attributeID string) string {
	if attributeID == "" {
		return p.Text
	}
	return p.Attributes.String(attributeID)
}

// Sequence groups the companion tier's intervals IndexFrom..IndexTo.
type Sequence struct {
	IndexFrom  int
	IndexTo    int
	Text       string
	Attributes Attributes
}

// Relation links interval IndexFrom to interval IndexTo of the companion tier.
type Relation struct {
	IndexFrom  int
	IndexTo    int
	Text       string
	Attributes Attributes
}

func replaceLabel(current, before, after string) string {
	if before == "" {
		if current == "" {
			return after
		}
		return current
	}
	return strings.ReplaceAll(current, before, after)
}

func replaceAttribute(attrs Attributes, id, before, after string) Attributes {
	value := replaceLabel(attrs.String(id), before, after)
	if value == attrs.String(id) {
		return attrs
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	attrs[id] = value
	return attrs
}

func relabelAttribute(attrs Attributes, id string, fn func(string) string) Attributes {
	old := attrs.String(id)
	value := fn(old)
	if value == old {
		return attrs
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	attrs[id] = value
	return attrs
}

func distinct(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
