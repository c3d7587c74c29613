package diff_test

import (
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/diff"
	"annotcore/internal/testsupport"
)

func TestIntervalsEndToEnd(t *testing.T) {
	a := testsupport.TimedTier(t, "tok", 0, "a", 1, "b", 2, "c", 3)
	b := testsupport.TimedTier(t, "tok", 0, "a", 1, "x", 1.5, "c", 3)

	cmp, err := diff.Intervals(a, b, diff.Options{})
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	want := []struct {
		op   diff.Op
		text string
	}{
		{diff.Match, "a"},
		{diff.Delete, "b"},
		{diff.Insert, "x"},
		{diff.Match, "c"},
	}
	if len(cmp.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d (%s)", len(cmp.Rows), len(want), cmp.Script)
	}
	for i, w := range want {
		row := cmp.Rows[i]
		if row.Op != w.op {
			t.Errorf("row %d op = %v, want %v", i, row.Op, w.op)
		}
		side := row.Left
		if side == nil {
			side = row.Right
		}
		if side.Text != w.text {
			t.Errorf("row %d text = %q, want %q", i, side.Text, w.text)
		}
	}
	if cmp.Rows[1].Right != nil || cmp.Rows[2].Left != nil {
		t.Error("absent sides must be nil")
	}
	if cmp.Differences() != 1 {
		t.Errorf("Differences() = %d, want 1", cmp.Differences())
	}
}

func TestIntervalsIgnoresTimes(t *testing.T) {
	a := testsupport.TimedTier(t, "tok", 0, "a", 1, "b", 2)
	b := testsupport.TimedTier(t, "tok", 0, "a", 0.2, "b", 5)

	cmp, err := diff.Intervals(a, b, diff.Options{})
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	if !cmp.Script.Identical() {
		t.Fatalf("expected identical script, got %s", cmp.Script)
	}
}

func TestIntervalsSkipPausesKeepsTierIndexes(t *testing.T) {
	a := testsupport.TimedTier(t, "tok", 0, "_", 1, "a", 2, "b", 3)
	b := testsupport.TimedTier(t, "tok", 0, "a", 1, "", 2, "b", 3)

	cmp, err := diff.Intervals(a, b, diff.Options{SkipPauses: true})
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	pairs := cmp.Script.Pairs()
	if len(pairs) != 2 || pairs[0] != [2]int{1, 0} || pairs[1] != [2]int{2, 2} {
		t.Fatalf("pairs = %v", pairs)
	}
}

func TestIntervalsKeysAndExtraColumns(t *testing.T) {
	a := testsupport.IntervalTier(t, "tok", "Été", "chat")
	b := testsupport.IntervalTier(t, "tok", "ete", "chien")
	if err := a.SetAttribute(1, "pos", "NOUN"); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	if err := b.SetAttribute(1, "pos", "NOUN"); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}

	text, _ := diff.ParseKey("text", "")
	folded, _ := diff.ParseKey("folded", "")
	byPOS, err := diff.ParseKey("attribute", "pos")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}

	tests := []struct {
		name  string
		key   diff.Key[annotation.Interval]
		match int
	}{
		{"text", text, 0},
		{"folded", folded, 1},
		{"attribute", byPOS, 2},
	}
	for _, tt := range tests {
		cmp, err := diff.Intervals(a, b, diff.Options{Key: tt.key, ExtraColumns: []string{"pos"}})
		if err != nil {
			t.Fatalf("%s: Intervals failed: %v", tt.name, err)
		}
		if m, _, _ := cmp.Script.Counts(); m != tt.match {
			t.Errorf("%s: %d matches, want %d (%s)", tt.name, m, tt.match, cmp.Script)
		}
	}

	cmp, _ := diff.Intervals(a, b, diff.Options{Key: byPOS, ExtraColumns: []string{"pos"}})
	if got := cmp.Rows[1].ExtraA; len(got) != 1 || got[0] != "NOUN" {
		t.Errorf("ExtraA = %v", got)
	}
}

func TestIntervalsRejectsInvalidInput(t *testing.T) {
	tier := testsupport.IntervalTier(t, "tok", "a")
	if _, err := diff.Intervals(nil, tier, diff.Options{}); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("nil tier: expected validation error, got %v", err)
	}
	if _, err := diff.Intervals(tier, tier, diff.Options{ExtraColumns: []string{""}}); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("empty column: expected validation error, got %v", err)
	}
	if _, err := diff.ParseKey("attribute", ""); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("attribute key without id: expected validation error, got %v", err)
	}
	if _, err := diff.ParseKey("soundex", ""); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestCountRuns(t *testing.T) {
	ops := map[rune]diff.Op{'=': diff.Match, '+': diff.Insert, '-': diff.Delete}
	tests := []struct {
		script string
		want   int
	}{
		{"==++-==+=", 3},
		{"", 0},
		{"===", 0},
		{"+-+-", 1},
		{"-=+", 2},
	}
	for _, tt := range tests {
		var s diff.Script
		for _, r := range tt.script {
			s = append(s, diff.Edit{Op: ops[r]})
		}
		if got := diff.CountRuns(s); got != tt.want {
			t.Errorf("CountRuns(%s) = %d, want %d", tt.script, got, tt.want)
		}
	}
}
