package timeline_test

import (
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/diff"
	"annotcore/internal/structure"
	"annotcore/internal/testsupport"
	"annotcore/internal/timeline"
)

func compare(t *testing.T, levelID string, a, b *annotation.IntervalTier) timeline.LevelDiff {
	t.Helper()
	cmp, err := diff.Intervals(a, b, diff.Options{})
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	return timeline.LevelDiff{LevelID: levelID, Comparison: cmp}
}

func TestCountDifferences(t *testing.T) {
	var s diff.Script
	for _, op := range []diff.Op{diff.Match, diff.Match, diff.Insert, diff.Insert, diff.Delete, diff.Match, diff.Match, diff.Insert, diff.Match} {
		s = append(s, diff.Edit{Op: op})
	}
	if got := timeline.CountDifferences(s); got != 3 {
		t.Fatalf("CountDifferences = %d, want 3", got)
	}
}

func TestMergeOrdersByTimeThenLevel(t *testing.T) {
	words := compare(t, "word",
		testsupport.TimedTier(t, "word", 0, "le", 1, "chat", 2),
		testsupport.TimedTier(t, "word", 0, "le", 1, "chien", 2),
	)
	syll := compare(t, "syll",
		testsupport.TimedTier(t, "syll", 0, "l@", 0.5, "S", 1, "a", 2),
		testsupport.TimedTier(t, "syll", 0, "l@", 0.5, "S", 1, "jE~", 2),
	)

	rows := timeline.Merge([]timeline.LevelDiff{words, syll})
	type want struct {
		level string
		key   annotation.RealTime
		op    diff.Op
	}
	expected := []want{
		{"word", 0, diff.Match},
		{"syll", 0, diff.Match},
		{"syll", annotation.Seconds(0.5), diff.Match},
		{"word", annotation.Second, diff.Delete},
		{"word", annotation.Second, diff.Insert},
		{"syll", annotation.Second, diff.Delete},
		{"syll", annotation.Second, diff.Insert},
	}
	if len(rows) != len(expected) {
		t.Fatalf("merged %d rows, want %d", len(rows), len(expected))
	}
	for i, w := range expected {
		if rows[i].LevelID != w.level || rows[i].Key != w.key || rows[i].Op != w.op {
			t.Errorf("row %d = %s %v %v, want %s %v %v", i, rows[i].LevelID, rows[i].Key, rows[i].Op, w.level, w.key, w.op)
		}
	}

	summaries := timeline.Summaries([]timeline.LevelDiff{words, syll})
	if summaries[0].Differences != 1 || summaries[1].Differences != 1 || summaries[1].Matches != 2 {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestMergeUsesLaterStartAndClampsWithinLevel(t *testing.T) {
	row := func(op diff.Op, left, right *annotation.Interval) diff.Row {
		return diff.Row{Op: op, Left: left, Right: right}
	}
	iv := func(tMin float64) *annotation.Interval {
		return &annotation.Interval{TMin: annotation.Seconds(tMin), TMax: annotation.Seconds(tMin + 1)}
	}
	level := timeline.LevelDiff{LevelID: "tok", Comparison: diff.Comparison{Rows: []diff.Row{
		row(diff.Match, iv(0), iv(0.4)),
		row(diff.Delete, iv(3), nil),
		row(diff.Insert, nil, iv(2)),
	}}}

	rows := timeline.Merge([]timeline.LevelDiff{level})
	keys := []annotation.RealTime{annotation.Seconds(0.4), 3 * annotation.Second, 3 * annotation.Second}
	for i, k := range keys {
		if rows[i].Key != k || rows[i].Seq != i {
			t.Errorf("row %d key %v seq %d, want key %v seq %d", i, rows[i].Key, rows[i].Seq, k, i)
		}
	}
}

func TestLayoutBalancesBuckets(t *testing.T) {
	mk := func(level, seq int, key annotation.RealTime) timeline.Row {
		return timeline.Row{Level: level, Seq: seq, Key: key}
	}
	rows := []timeline.Row{
		mk(0, 0, 0),
		mk(1, 0, 0),
		mk(1, 1, 0),
		mk(1, 2, 0),
		mk(0, 1, annotation.Second),
		mk(1, 3, annotation.Second),
	}
	grid := timeline.Layout(rows, 2)
	if grid.Levels != 2 || len(grid.Lines) != 4 {
		t.Fatalf("grid has %d lines, want 4", len(grid.Lines))
	}
	if grid.Lines[0].Cells[0] == nil || grid.Lines[1].Cells[0] != nil || grid.Lines[2].Cells[0] != nil {
		t.Error("sparse level must be padded within its bucket")
	}
	for i := 0; i < 3; i++ {
		if cell := grid.Lines[i].Cells[1]; cell == nil || cell.Seq != i {
			t.Errorf("line %d level 1 = %+v", i, cell)
		}
	}
	last := grid.Lines[3]
	if last.Key != annotation.Second || last.Cells[0].Seq != 1 || last.Cells[1].Seq != 3 {
		t.Errorf("second bucket line = %+v", last)
	}
}

func TestOrderedFollowsDeclaration(t *testing.T) {
	st, err := structure.New(
		&structure.Level{ID: "tok", Kind: structure.IndependentIntervals, DataType: structure.Text},
		&structure.Level{ID: "syll", Kind: structure.IndependentIntervals, DataType: structure.Text},
	)
	if err != nil {
		t.Fatalf("structure.New failed: %v", err)
	}
	got := timeline.Ordered([]timeline.LevelDiff{{LevelID: "other"}, {LevelID: "syll"}, {LevelID: "tok"}}, st)
	if got[0].LevelID != "tok" || got[1].LevelID != "syll" || got[2].LevelID != "other" {
		t.Fatalf("Ordered = %v, %v, %v", got[0].LevelID, got[1].LevelID, got[2].LevelID)
	}
}
