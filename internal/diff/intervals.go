package diff

import (
	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
)

// Options configures Intervals.
type Options struct {
	// Key projects intervals for comparison; nil compares labels.
	Key Key[annotation.Interval]
	// SkipPauses leaves blank and pause intervals out of the comparison.
	// Row indexes still refer to positions in the original tiers.
	SkipPauses bool
	// ExtraColumns are attributes copied onto each row for display.
	ExtraColumns []string
}

// Row is one edit with the intervals it refers to. Left is nil for
// insertions and Right for deletions.
type Row struct {
	Op     Op
	IndexA int
	IndexB int
	Left   *annotation.Interval
	Right  *annotation.Interval
	// ExtraA and ExtraB hold the ExtraColumns values of each side, empty
	// where the side is absent.
	ExtraA []string
	ExtraB []string
}

// Comparison is the diff of two interval tiers.
type Comparison struct {
	Script Script
	Rows   []Row
}

// Differences counts the maximal runs of non-matching rows.
func (c Comparison) Differences() int {
	return CountRuns(c.Script)
}

// Intervals diffs two interval tiers. Script and row indexes address the
// tiers' intervals.
func Intervals(a, b *annotation.IntervalTier, opts Options) (Comparison, error) {
	if a == nil || b == nil {
		return Comparison{}, corpuserr.Validation("diff", "both tiers are required")
	}
	for _, col := range opts.ExtraColumns {
		if col == "" {
			return Comparison{}, corpuserr.Validation("diff", "extra column ids must not be empty")
		}
	}
	key := opts.Key
	if key == nil {
		key = TextKey
	}

	left, leftIdx := tokens(a, opts.SkipPauses)
	right, rightIdx := tokens(b, opts.SkipPauses)
	script := Diff(left, right, key, key)
	for i := range script {
		if script[i].IndexA != NoIndex {
			script[i].IndexA = leftIdx[script[i].IndexA]
		}
		if script[i].IndexB != NoIndex {
			script[i].IndexB = rightIdx[script[i].IndexB]
		}
	}

	rows := make([]Row, len(script))
	for i, e := range script {
		row := Row{Op: e.Op, IndexA: e.IndexA, IndexB: e.IndexB}
		if e.IndexA != NoIndex {
			iv, _ := a.Interval(e.IndexA)
			row.Left = &iv
			row.ExtraA = labels(iv, opts.ExtraColumns)
		}
		if e.IndexB != NoIndex {
			iv, _ := b.Interval(e.IndexB)
			row.Right = &iv
			row.ExtraB = labels(iv, opts.ExtraColumns)
		}
		rows[i] = row
	}
	return Comparison{Script: script, Rows: rows}, nil
}

func tokens(t *annotation.IntervalTier, skipPauses bool) ([]annotation.Interval, []int) {
	all := t.Intervals()
	if !skipPauses {
		idx := make([]int, len(all))
		for i := range idx {
			idx[i] = i
		}
		return all, idx
	}
	var (
		kept []annotation.Interval
		idx  []int
	)
	for i, iv := range all {
		if iv.IsBlank() || iv.IsPause() {
			continue
		}
		kept = append(kept, iv)
		idx = append(idx, i)
	}
	return kept, idx
}

func labels(iv annotation.Interval, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = iv.Label(id)
	}
	return out
}

// CountRuns counts maximal runs of insertions and deletions: each region
// of consecutive non-matching edits is one difference.
func CountRuns(s Script) int {
	count := 0
	open := false
	for _, e := range s {
		switch {
		case e.Op != Match && !open:
			open = true
			count++
		case e.Op == Match:
			open = false
		}
	}
	return count
}
