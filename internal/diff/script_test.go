package diff_test

import (
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"

	"annotcore/internal/diff"
)

func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}

func TestStringsIdentity(t *testing.T) {
	for _, in := range []string{"a", "a b c", "a a a b a", "x y z x y z"} {
		tokens := split(in)
		script := diff.Strings(tokens, tokens)
		if len(script) != len(tokens) || !script.Identical() {
			t.Fatalf("Strings(%q, same) = %s", in, script)
		}
		for i, e := range script {
			if e.IndexA != i || e.IndexB != i {
				t.Fatalf("Strings(%q, same)[%d] = %+v", in, i, e)
			}
		}
	}
}

func TestStringsSymmetry(t *testing.T) {
	tests := []struct{ a, b string }{
		{"a b c", "a x c"},
		{"a b c d", "b a d c"},
		{"the cat sat on the mat", "a cat sat on a mat"},
		{"x y", "y x"},
		{"", "a b"},
		{"a b a b", "b a b a"},
	}
	for _, tt := range tests {
		ab := diff.Strings(split(tt.a), split(tt.b))
		ba := diff.Strings(split(tt.b), split(tt.a))

		mirrored := make([][2]int, 0)
		for _, p := range ba.Pairs() {
			mirrored = append(mirrored, [2]int{p[1], p[0]})
		}
		if !slices.Equal(ab.Pairs(), mirrored) && !(len(ab.Pairs()) == 0 && len(mirrored) == 0) {
			t.Errorf("%q vs %q: pairs %v, reversed pairs %v", tt.a, tt.b, ab.Pairs(), mirrored)
		}
		mAB, insAB, delAB := ab.Counts()
		mBA, insBA, delBA := ba.Counts()
		if mAB != mBA || insAB != delBA || delAB != insBA {
			t.Errorf("%q vs %q: counts (%d,%d,%d) vs (%d,%d,%d)", tt.a, tt.b, mAB, insAB, delAB, mBA, insBA, delBA)
		}
		if got := ab.Invert().String(); got != ba.String() {
			t.Errorf("%q vs %q: Invert() = %s, want %s", tt.a, tt.b, got, ba.String())
		}
	}
}

func TestStringsIsShortest(t *testing.T) {
	tests := []struct {
		a, b    string
		matches int
		want    string
	}{
		{"a b c", "a x c", 2, "=-+="},
		{"a b c", "", 0, "---"},
		{"", "a b", 0, "++"},
		{"a b c d e", "a c e", 3, "=-=-="},
		{"a c", "a b c", 2, "=+="},
		{"a b c", "c b a", 1, "--=++"},
	}
	for _, tt := range tests {
		script := diff.Strings(split(tt.a), split(tt.b))
		m, _, _ := script.Counts()
		if m != tt.matches {
			t.Errorf("%q vs %q: %d matches, want %d", tt.a, tt.b, m, tt.matches)
		}
		if script.String() != tt.want {
			t.Errorf("%q vs %q: script %s, want %s", tt.a, tt.b, script, tt.want)
		}
	}
}

func TestDeletesPrecedeInsertsInEveryRun(t *testing.T) {
	script := diff.Strings(split("p q a r s b"), split("x a y z b w"))
	for i := 1; i < len(script); i++ {
		if script[i-1].Op == diff.Insert && script[i].Op == diff.Delete {
			t.Fatalf("insert before delete at %d: %s", i, script)
		}
	}
	for _, e := range script {
		switch e.Op {
		case diff.Insert:
			if e.IndexA != diff.NoIndex || e.IndexB < 0 {
				t.Fatalf("bad insert %+v", e)
			}
		case diff.Delete:
			if e.IndexB != diff.NoIndex || e.IndexA < 0 {
				t.Fatalf("bad delete %+v", e)
			}
		}
	}
}

func TestDiffWithDifferentKeys(t *testing.T) {
	type token struct{ form, lemma string }
	a := []token{{"cats", "cat"}, {"ran", "run"}}
	b := []token{{"cat", "cat"}, {"runs", "run"}}

	byForm := func(t token) string { return t.form }
	byLemma := func(t token) string { return t.lemma }

	if diff.Diff(a, b, byForm, nil).Identical() {
		t.Fatal("expected forms to differ")
	}
	if !diff.Diff(a, b, byLemma, byLemma).Identical() {
		t.Fatal("expected lemmas to match")
	}
}

func TestStringsLargeInputAllocatesLinearly(t *testing.T) {
	if testing.Short() {
		t.Skip("large alignment")
	}
	const n = 12000
	a := make([]string, 0, n)
	b := make([]string, 0, n+n/13)
	for i := range n {
		tok := "w" + strconv.Itoa(i%997)
		a = append(a, tok)
		switch {
		case i%10 == 3:
			b = append(b, "x")
		case i%13 == 5:
			b = append(b, tok, "y")
		default:
			b = append(b, tok)
		}
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	ab := diff.Strings(a, b)
	runtime.ReadMemStats(&after)
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 32<<20 {
		t.Fatalf("diff of %d tokens allocated %d bytes", n, allocated)
	}

	m, ins, del := ab.Counts()
	if m+del != len(a) || m+ins != len(b) {
		t.Fatalf("counts (%d,%d,%d) do not cover %d/%d tokens", m, ins, del, len(a), len(b))
	}
	if m < n*8/10 {
		t.Fatalf("only %d matches out of %d", m, n)
	}
	ba := diff.Strings(b, a)
	if ab.Invert().String() != ba.String() {
		t.Fatal("swapped inputs should mirror the script")
	}
}
