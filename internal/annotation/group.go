package annotation

import (
	"slices"
	"sort"
)

// TierGroup holds the tiers of one speaker in one annotation, in insertion
// order. The group belongs to whoever obtained it; nothing else keeps a
// reference.
type TierGroup struct {
	AnnotationID string
	SpeakerID    string

	names []string
	tiers map[string]Tier
}

// NewTierGroup returns an empty group.
func NewTierGroup(annotationID, speakerID string) *TierGroup {
	return &TierGroup{AnnotationID: annotationID, SpeakerID: speakerID, tiers: map[string]Tier{}}
}

// Add inserts or replaces a tier under its name. Replacement keeps the
// original position.
func (g *TierGroup) Add(tier Tier) {
	if g.tiers == nil {
		g.tiers = map[string]Tier{}
	}
	name := tier.Name()
	if _, ok := g.tiers[name]; !ok {
		g.names = append(g.names, name)
	}
	g.tiers[name] = tier
}

// Tier returns the tier named name.
func (g *TierGroup) Tier(name string) (Tier, bool) {
	t, ok := g.tiers[name]
	return t, ok
}

// IntervalTier returns the tier named name when it is an interval tier.
func (g *TierGroup) IntervalTier(name string) (*IntervalTier, bool) {
	t, ok := g.tiers[name].(*IntervalTier)
	return t, ok
}

// Remove drops a tier; it reports whether one was present.
func (g *TierGroup) Remove(name string) bool {
	if _, ok := g.tiers[name]; !ok {
		return false
	}
	delete(g.tiers, name)
	g.names = slices.DeleteFunc(g.names, func(n string) bool { return n == name })
	return true
}

// Names returns tier names in insertion order.
func (g *TierGroup) Names() []string { return slices.Clone(g.names) }

// Tiers returns the tiers in insertion order.
func (g *TierGroup) Tiers() []Tier {
	out := make([]Tier, 0, len(g.names))
	for _, n := range g.names {
		out = append(out, g.tiers[n])
	}
	return out
}

// Len returns the number of tiers.
func (g *TierGroup) Len() int { return len(g.names) }

// Span returns the smallest window covering every time-based tier.
func (g *TierGroup) Span() (RealTime, RealTime, bool) {
	var tMin, tMax RealTime
	found := false
	for _, tier := range g.Tiers() {
		var lo, hi RealTime
		switch t := tier.(type) {
		case *IntervalTier:
			lo, hi = t.TMin(), t.TMax()
		case *PointTier:
			lo, hi = t.TMin(), t.TMax()
		case *SequenceTier, *RelationTier:
			continue
		}
		if !found {
			tMin, tMax, found = lo, hi, true
			continue
		}
		tMin, tMax = MinTime(tMin, lo), MaxTime(tMax, hi)
	}
	return tMin, tMax, found
}

// SpeakerTiers maps speaker IDs to the tier group of that speaker.
type SpeakerTiers map[string]*TierGroup

// Speakers returns the speaker IDs sorted.
func (s SpeakerTiers) Speakers() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Group returns the group of speakerID, creating it when missing.
func (s SpeakerTiers) Group(annotationID, speakerID string) *TierGroup {
	if g, ok := s[speakerID]; ok {
		return g
	}
	g := NewTierGroup(annotationID, speakerID)
	s[speakerID] = g
	return g
}
