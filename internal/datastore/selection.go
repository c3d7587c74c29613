package datastore

import (
	"slices"

	"annotcore/internal/annotation"
)

// Sentinels reported for unset bounds.
const (
	NoIndex                     = -1
	NoTime  annotation.RealTime = -1
)

// Selection describes which elements a read returns. Empty IDs select every
// annotation, speaker or level; unset bounds impose no restriction. The zero
// value selects everything.
//
// Selections are values: the With methods return modified copies.
type Selection struct {
	AnnotationID string
	SpeakerID    string
	LevelID      string

	attributeIDs []string

	// bounds are stored shifted by one so the zero value means "unset"
	indexMin, indexMax int
	timeMin, timeMax   annotation.RealTime
	hasTimeMin         bool
	hasTimeMax         bool
}

// Select returns a selection of one level of one speaker in one annotation.
func Select(annotationID, speakerID, levelID string) Selection {
	return Selection{AnnotationID: annotationID, SpeakerID: speakerID, LevelID: levelID}
}

// WithAttributes restricts the attribute columns loaded.
func (s Selection) WithAttributes(ids ...string) Selection {
	s.attributeIDs = slices.Clone(ids)
	return s
}

// WithIndexRange keeps elements whose item number lies in [lo, hi].
// Pass NoIndex to leave either end open.
func (s Selection) WithIndexRange(lo, hi int) Selection {
	s.indexMin, s.indexMax = 0, 0
	if lo >= 0 {
		s.indexMin = lo + 1
	}
	if hi >= 0 {
		s.indexMax = hi + 1
	}
	return s
}

// WithTimeRange keeps elements intersecting [lo, hi]. Pass NoTime to leave
// either end open.
func (s Selection) WithTimeRange(lo, hi annotation.RealTime) Selection {
	s.hasTimeMin, s.hasTimeMax = lo != NoTime, hi != NoTime
	s.timeMin, s.timeMax = lo, hi
	return s
}

// AttributeIDs returns the selected attributes; nil means all declared ones.
func (s Selection) AttributeIDs() []string { return slices.Clone(s.attributeIDs) }

// IndexMin returns the lower item bound or NoIndex.
func (s Selection) IndexMin() int { return s.indexMin - 1 }

// IndexMax returns the upper item bound or NoIndex.
func (s Selection) IndexMax() int { return s.indexMax - 1 }

// TimeMin returns the lower time bound or NoTime.
func (s Selection) TimeMin() annotation.RealTime {
	if !s.hasTimeMin {
		return NoTime
	}
	return s.timeMin
}

// TimeMax returns the upper time bound or NoTime.
func (s Selection) TimeMax() annotation.RealTime {
	if !s.hasTimeMax {
		return NoTime
	}
	return s.timeMax
}

// Bounded reports whether any index or time bound is set.
func (s Selection) Bounded() bool {
	return s.indexMin > 0 || s.indexMax > 0 || s.hasTimeMin || s.hasTimeMax
}

// MatchesIndex applies the index bounds.
func (s Selection) MatchesIndex(i int) bool {
	if lo := s.IndexMin(); lo != NoIndex && i < lo {
		return false
	}
	if hi := s.IndexMax(); hi != NoIndex && i > hi {
		return false
	}
	return true
}

// MatchesSpan applies the time bounds: an element matches when it
// intersects the window. Zero-length elements match when they lie inside it.
func (s Selection) MatchesSpan(tMin, tMax annotation.RealTime) bool {
	if s.hasTimeMin {
		if tMax < s.timeMin || (tMax == s.timeMin && tMin != tMax) {
			return false
		}
	}
	if s.hasTimeMax {
		if tMin > s.timeMax || (tMin == s.timeMax && tMin != tMax) {
			return false
		}
	}
	return true
}
