package timeline

import (
	"slices"

	"annotcore/internal/annotation"
	"annotcore/internal/diff"
	"annotcore/internal/structure"
)

// LevelDiff is the comparison of one level.
type LevelDiff struct {
	LevelID    string
	Comparison diff.Comparison
}

// Row is a diff row placed on the merged timeline.
type Row struct {
	diff.Row
	// Level is the position of the row's level in the Merge input.
	Level   int
	LevelID string
	// Seq is the row's position within its level.
	Seq int
	// Key is the time the row is sorted by.
	Key annotation.RealTime
}

// Merge interleaves the rows of every level. A row's key is the later of
// its sides' start times, or the present side's start for insertions and
// deletions; within a level keys are clamped so they never decrease. Rows
// are ordered by key, then level position, then position within the level.
func Merge(levels []LevelDiff) []Row {
	total := 0
	for _, l := range levels {
		total += len(l.Comparison.Rows)
	}
	rows := make([]Row, 0, total)
	for li, l := range levels {
		var prev annotation.RealTime
		for seq, r := range l.Comparison.Rows {
			key, ok := rowKey(r)
			if !ok || (seq > 0 && key < prev) {
				key = prev
			}
			prev = key
			rows = append(rows, Row{Row: r, Level: li, LevelID: l.LevelID, Seq: seq, Key: key})
		}
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.Key != b.Key:
			return cmpTime(a.Key, b.Key)
		case a.Level != b.Level:
			return a.Level - b.Level
		}
		return a.Seq - b.Seq
	})
	return rows
}

func rowKey(r diff.Row) (annotation.RealTime, bool) {
	switch {
	case r.Left != nil && r.Right != nil:
		return annotation.MaxTime(r.Left.TMin, r.Right.TMin), true
	case r.Left != nil:
		return r.Left.TMin, true
	case r.Right != nil:
		return r.Right.TMin, true
	}
	return 0, false
}

func cmpTime(a, b annotation.RealTime) int {
	if a < b {
		return -1
	}
	return 1
}

// Ordered sorts level comparisons into the declaration order of st.
// Levels st does not know keep their relative order at the end.
func Ordered(levels []LevelDiff, st *structure.AnnotationStructure) []LevelDiff {
	out := slices.Clone(levels)
	pos := func(id string) int {
		if p := st.Position(id); p >= 0 {
			return p
		}
		return len(levels) + len(st.LevelIDs())
	}
	slices.SortStableFunc(out, func(a, b LevelDiff) int { return pos(a.LevelID) - pos(b.LevelID) })
	return out
}
