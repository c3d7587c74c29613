package annotation_test

import (
	"reflect"
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
)

func sec(s float64) annotation.RealTime { return annotation.Seconds(s) }

func iv(tMin, tMax float64, text string) annotation.Interval {
	return annotation.Interval{TMin: sec(tMin), TMax: sec(tMax), Text: text}
}

func assertContiguous(t *testing.T, tier *annotation.IntervalTier) {
	t.Helper()
	intervals := tier.Intervals()
	if len(intervals) == 0 {
		t.Fatal("tier has no intervals")
	}
	if intervals[0].TMin != tier.TMin() {
		t.Fatalf("first interval starts at %s, tier at %s", intervals[0].TMin, tier.TMin())
	}
	if last := intervals[len(intervals)-1]; last.TMax != tier.TMax() {
		t.Fatalf("last interval ends at %s, tier at %s", last.TMax, tier.TMax())
	}
	for i := 0; i+1 < len(intervals); i++ {
		if intervals[i].TMax != intervals[i+1].TMin {
			t.Fatalf("gap between %d and %d: %s vs %s", i, i+1, intervals[i].TMax, intervals[i+1].TMin)
		}
	}
}

func texts(tier *annotation.IntervalTier) []string {
	var out []string
	for _, intv := range tier.Intervals() {
		out = append(out, intv.Text)
	}
	return out
}

func TestBuildIntervalTierFillsGaps(t *testing.T) {
	cases := []struct {
		name      string
		intervals []annotation.Interval
		tMin      float64
		tMax      float64
		want      []string
	}{
		{"empty input", nil, 0, 5, []string{""}},
		{"leading and trailing gap", []annotation.Interval{iv(1, 2, "a")}, 0, 3, []string{"_", "a", "_"}},
		{"unsorted with inner gap", []annotation.Interval{iv(3, 4, "c"), iv(0, 1, "a")}, 0, 4, []string{"a", "_", "c"}},
		{"widens span", []annotation.Interval{iv(0, 6, "a")}, 1, 2, []string{"a"}},
		{"already contiguous", []annotation.Interval{iv(0, 1, "a"), iv(1, 2, "b")}, 0, 2, []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filler := "_"
			if tc.intervals == nil {
				filler = ""
			}
			tier, err := annotation.BuildIntervalTier("tok", tc.intervals, sec(tc.tMin), sec(tc.tMax), filler)
			if err != nil {
				t.Fatalf("BuildIntervalTier failed: %v", err)
			}
			assertContiguous(t, tier)
			if got := texts(tier); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("texts = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildIntervalTierRejectsOverlap(t *testing.T) {
	_, err := annotation.BuildIntervalTier("tok", []annotation.Interval{iv(0, 2, "a"), iv(1, 3, "b")}, 0, sec(3), "")
	if !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := annotation.NewInterval(sec(2), sec(1), "x"); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("expected validation error for reversed interval, got %v", err)
	}
}

func TestIndexAt(t *testing.T) {
	tier := annotation.MustIntervalTier("tok", []annotation.Interval{iv(0, 1, "a"), iv(1, 2, "b"), iv(2, 3, "c")}, 0, sec(3))
	cases := []struct {
		at   float64
		want int
	}{
		{-0.1, -1},
		{0, 0},
		{0.5, 0},
		{1, 1},
		{2.999, 2},
		{3, 2},
		{3.1, -1},
	}
	for _, tc := range cases {
		if got := tier.IndexAt(sec(tc.at)); got != tc.want {
			t.Fatalf("IndexAt(%v) = %d, want %d", tc.at, got, tc.want)
		}
	}
	if intv, ok := tier.At(sec(1.5)); !ok || intv.Text != "b" {
		t.Fatalf("At(1.5) = %v, %v", intv, ok)
	}
}

func TestContainedInAndOverlapping(t *testing.T) {
	tier := annotation.MustIntervalTier("tok", []annotation.Interval{
		iv(0, 1, "a"), iv(1, 2, "b"), iv(2, 3, "c"), iv(3, 4, "d"),
	}, 0, sec(4))

	contained := tier.ContainedIn(sec(1), sec(3))
	if len(contained) != 2 || contained[0].Text != "b" || contained[1].Text != "c" {
		t.Fatalf("ContainedIn = %v", contained)
	}

	overlapping := tier.Overlapping(sec(1.5), sec(3))
	if len(overlapping) != 2 || overlapping[0].Text != "b" || overlapping[1].Text != "c" {
		t.Fatalf("Overlapping = %v", overlapping)
	}
	if got := tier.Overlapping(sec(4), sec(5)); len(got) != 0 {
		t.Fatalf("touching window should not overlap, got %v", got)
	}
}

func TestMergeIdenticalAnnotationsIsIdempotent(t *testing.T) {
	build := func() *annotation.IntervalTier {
		return annotation.MustIntervalTier("tok", []annotation.Interval{
			iv(0, 1, "_"), iv(1, 2, "_"), iv(2, 3, "a"), iv(3, 4, "a"), iv(4, 5, "_"), iv(5, 6, "_"),
		}, 0, sec(6))
	}

	pauses := build()
	pauses.MergeIdenticalAnnotations(annotation.PauseMarker)
	if got, want := texts(pauses), []string{"_", "a", "a", "_"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("marker merge = %q, want %q", got, want)
	}
	assertContiguous(t, pauses)

	all := build()
	all.MergeIdenticalAnnotations("")
	once := all.Intervals()
	all.MergeIdenticalAnnotations("")
	if !reflect.DeepEqual(once, all.Intervals()) {
		t.Fatalf("second merge changed the tier: %v vs %v", once, all.Intervals())
	}
	if got, want := texts(all), []string{"_", "a", "_"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("merge = %q, want %q", got, want)
	}
	assertContiguous(t, all)
}

func TestEditingPrimitivesKeepContiguity(t *testing.T) {
	tier := annotation.MustIntervalTier("tok", []annotation.Interval{iv(0, 2, "ab"), iv(2, 3, "c")}, 0, sec(3))

	right, err := tier.Split(sec(1))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if right != 1 || tier.Count() != 3 {
		t.Fatalf("unexpected split result %d, count %d", right, tier.Count())
	}
	assertContiguous(t, tier)
	if _, err := tier.Split(sec(1)); err == nil {
		t.Fatal("expected error when splitting on a boundary")
	}

	if err := tier.SetText(1, "b"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if err := tier.MoveBoundary(1, sec(0.5)); err != nil {
		t.Fatalf("MoveBoundary failed: %v", err)
	}
	assertContiguous(t, tier)
	if err := tier.MoveBoundary(1, sec(0)); err == nil {
		t.Fatal("expected error when collapsing previous interval")
	}

	if err := tier.Merge(0, 2, " "); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := texts(tier); !reflect.DeepEqual(got, []string{"ab b c"}) {
		t.Fatalf("merged texts = %q", got)
	}
	assertContiguous(t, tier)

	tier.TimeShift(sec(10))
	if tier.TMin() != sec(10) || tier.TMax() != sec(13) {
		t.Fatalf("shifted span = [%s, %s]", tier.TMin(), tier.TMax())
	}
	assertContiguous(t, tier)
}

func TestFillEmptyReplaceAndDistinct(t *testing.T) {
	tier := annotation.MustIntervalTier("tok", []annotation.Interval{iv(0, 1, "la"), iv(2, 3, "la"), iv(3, 4, "le")}, 0, sec(4))

	tier.FillEmptyWith("", annotation.PauseMarker)
	if got, want := texts(tier), []string{"la", "_", "la", "le"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}
	if got, want := tier.DistinctLabels(""), []string{"la", "_", "le"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("distinct = %q, want %q", got, want)
	}

	tier.Replace("", "l", "L")
	if got, want := texts(tier), []string{"La", "_", "La", "Le"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("replaced = %q, want %q", got, want)
	}

	tier.FillEmptyWith("pos", "UNK")
	for _, intv := range tier.Intervals() {
		if intv.Label("pos") != "UNK" {
			t.Fatalf("expected attribute filled, got %v", intv.Attributes)
		}
	}
	if tier.IsEmpty() {
		t.Fatal("tier with labels reported empty")
	}
	tier.Clear()
	if !tier.IsEmpty() || tier.Count() != 1 {
		t.Fatalf("Clear left %d intervals", tier.Count())
	}
}

func TestReplaceAllTakesNewSpan(t *testing.T) {
	tier := annotation.MustIntervalTier("tok", nil, 0, sec(10))
	if err := tier.ReplaceAll([]annotation.Interval{iv(2, 3, "b"), iv(1, 2, "a")}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if tier.TMin() != sec(1) || tier.TMax() != sec(3) {
		t.Fatalf("span = [%s, %s]", tier.TMin(), tier.TMax())
	}
	if got := tier.Text(0, 5, "|"); got != "a|b" {
		t.Fatalf("Text = %q", got)
	}
	if got := tier.Context(1, 1, " "); got != "a [b]" {
		t.Fatalf("Context = %q", got)
	}
}

func TestMergeRemapsDependentTiers(t *testing.T) {
	tokens := annotation.MustIntervalTier("tok", []annotation.Interval{
		iv(0, 1, "a"), iv(1, 2, "_"), iv(2, 3, "_"), iv(3, 4, "b"),
	}, 0, sec(4))
	np, err := annotation.NewSequenceTier("np", tokens, []annotation.Sequence{
		{IndexFrom: 3, IndexTo: 3, Text: "N"},
		{IndexFrom: 0, IndexTo: 3, Text: "S"},
	})
	if err != nil {
		t.Fatalf("NewSequenceTier failed: %v", err)
	}
	dep, err := annotation.NewRelationTier("dep", tokens, []annotation.Relation{{IndexFrom: 3, IndexTo: 0, Text: "obj"}})
	if err != nil {
		t.Fatalf("NewRelationTier failed: %v", err)
	}

	mapping := tokens.MergeIdenticalAnnotations(annotation.PauseMarker)
	if want := []int{0, 1, 1, 2}; !reflect.DeepEqual(mapping, want) {
		t.Fatalf("mapping = %v, want %v", mapping, want)
	}
	if err := np.Validate(); err == nil {
		t.Fatal("stale sequence indices should fail validation before remapping")
	}
	if err := np.RemapIndices(mapping); err != nil {
		t.Fatalf("RemapIndices failed: %v", err)
	}
	if err := dep.RemapIndices(mapping); err != nil {
		t.Fatalf("RemapIndices failed: %v", err)
	}
	if err := np.Validate(); err != nil {
		t.Fatalf("remapped sequences invalid: %v", err)
	}
	if err := dep.Validate(); err != nil {
		t.Fatalf("remapped relations invalid: %v", err)
	}
	if text, _ := np.CoveredText(0, " "); text != "a _ b" {
		t.Fatalf("covered text = %q", text)
	}
	if r, _ := dep.Relation(0); r.IndexFrom != 2 || r.IndexTo != 0 {
		t.Fatalf("relation = %+v", r)
	}

	before := np.Sequences()
	if err := np.RemapIndices([]int{0}); !corpuserr.Is(err, corpuserr.KindValidation) {
		t.Fatalf("short mapping: expected validation error, got %v", err)
	}
	if !reflect.DeepEqual(before, np.Sequences()) {
		t.Fatal("failed remap must leave the tier unchanged")
	}
}
