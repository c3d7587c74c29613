package diff

import (
	"math"
	"slices"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
)

// controlPoint maps a hypothesis time onto a reference time.
type controlPoint struct {
	from annotation.RealTime
	to   annotation.RealTime
}

// Retime warps the boundaries of hyp onto the timeline of ref. The script
// must come from diffing ref (side A) against hyp (side B).
//
// Every matched pair inside an anchor pins the hypothesis interval's start
// and end to the reference interval's. Between pins boundaries are moved
// by linear interpolation; before the first and after the last pin they
// are shifted by that pin's offset. The warp never decreases, so the
// result is contiguous and keeps every label and attribute of hyp. Without
// anchors hyp is returned unchanged (as a copy).
func Retime(ref, hyp *annotation.IntervalTier, s Script, anchors []Anchor) (*annotation.IntervalTier, error) {
	if ref == nil || hyp == nil {
		return nil, corpuserr.Validation("retime", "both tiers are required")
	}
	points, err := controlPoints(ref, hyp, s, anchors)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return hyp.Clone(), nil
	}

	intervals := hyp.Intervals()
	for i := range intervals {
		intervals[i].TMin = warp(points, intervals[i].TMin)
		intervals[i].TMax = warp(points, intervals[i].TMax)
	}
	tMin, tMax := warp(points, hyp.TMin()), warp(points, hyp.TMax())
	out, err := annotation.BuildIntervalTier(hyp.Name(), intervals, tMin, tMax, "")
	if err != nil {
		return nil, corpuserr.WithOp("retime", err)
	}
	return out, nil
}

func controlPoints(ref, hyp *annotation.IntervalTier, s Script, anchors []Anchor) ([]controlPoint, error) {
	var points []controlPoint
	for _, a := range anchors {
		if a.Start < 0 || a.End > len(s) || a.Start > a.End {
			return nil, corpuserr.Validation("retime", "anchor [%d,%d) outside script of %d edits", a.Start, a.End, len(s))
		}
		for _, p := range a.Pairs(s) {
			r, okR := ref.Interval(p[0])
			h, okH := hyp.Interval(p[1])
			if !okR || !okH {
				return nil, corpuserr.Validation("retime", "script does not address these tiers (pair %d/%d)", p[0], p[1])
			}
			points = append(points,
				controlPoint{from: h.TMin, to: r.TMin},
				controlPoint{from: h.TMax, to: r.TMax},
			)
		}
	}
	slices.SortStableFunc(points, func(x, y controlPoint) int {
		switch {
		case x.from < y.from:
			return -1
		case x.from > y.from:
			return 1
		}
		return 0
	})
	// Keep a strictly increasing source axis and a non-decreasing target.
	kept := points[:0]
	for _, p := range points {
		if n := len(kept); n > 0 && (p.from <= kept[n-1].from || p.to < kept[n-1].to) {
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

func warp(points []controlPoint, t annotation.RealTime) annotation.RealTime {
	first, last := points[0], points[len(points)-1]
	var out annotation.RealTime
	switch {
	case t <= first.from:
		out = t + (first.to - first.from)
	case t >= last.from:
		out = t + (last.to - last.from)
	default:
		k, _ := slices.BinarySearchFunc(points, t, func(p controlPoint, t annotation.RealTime) int {
			switch {
			case p.from < t:
				return -1
			case p.from > t:
				return 1
			}
			return 0
		})
		if points[k].from == t {
			return points[k].to
		}
		lo, hi := points[k-1], points[k]
		ratio := float64(t-lo.from) / float64(hi.from-lo.from)
		out = lo.to + annotation.RealTime(math.Round(ratio*float64(hi.to-lo.to)))
	}
	return max(out, 0)
}

// AlignResult is the outcome of Align.
type AlignResult struct {
	Tier    *annotation.IntervalTier
	Script  Script
	Anchors []Anchor
}

// Align diffs a recogniser tier against a reference tier, ignoring pauses
// on both sides, and retimes the hypothesis through the anchors found.
func Align(ref, hyp *annotation.IntervalTier, key Key[annotation.Interval], opts AnchorOptions) (AlignResult, error) {
	cmp, err := Intervals(ref, hyp, Options{Key: key, SkipPauses: true})
	if err != nil {
		return AlignResult{}, err
	}
	anchors, err := FindAnchors(cmp.Script, opts)
	if err != nil {
		return AlignResult{}, err
	}
	tier, err := Retime(ref, hyp, cmp.Script, anchors)
	if err != nil {
		return AlignResult{}, err
	}
	return AlignResult{Tier: tier, Script: cmp.Script, Anchors: anchors}, nil
}
