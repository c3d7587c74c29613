package timeline

import "annotcore/internal/diff"

// CountDifferences counts maximal runs of insertions and deletions in one
// level's script. A run of any length is one difference.
func CountDifferences(s diff.Script) int {
	return diff.CountRuns(s)
}

// Summary holds the per-level totals of a comparison.
type Summary struct {
	LevelID     string
	Matches     int
	Inserts     int
	Deletes     int
	Differences int
}

// Summaries reports counts for each level, in input order.
func Summaries(levels []LevelDiff) []Summary {
	out := make([]Summary, len(levels))
	for i, l := range levels {
		m, ins, del := l.Comparison.Script.Counts()
		out[i] = Summary{
			LevelID:     l.LevelID,
			Matches:     m,
			Inserts:     ins,
			Deletes:     del,
			Differences: CountDifferences(l.Comparison.Script),
		}
	}
	return out
}
