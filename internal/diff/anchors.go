package diff

import "annotcore/internal/corpuserr"

// AnchorOptions bounds what counts as an anchor.
type AnchorOptions struct {
	// MinMatches is the fewest matches an anchor may hold.
	MinMatches int
	// MaxMismatches is the interior mismatch budget. A gap between two
	// matches costs the larger of its deletion and insertion counts, so a
	// one-token substitution costs 1.
	MaxMismatches int
}

// DefaultAnchorOptions are the thresholds used when nothing is configured.
var DefaultAnchorOptions = AnchorOptions{MinMatches: 4, MaxMismatches: 1}

// Validate checks the thresholds.
func (o AnchorOptions) Validate() error {
	if o.MinMatches < 1 {
		return corpuserr.Validation("anchor options", "min matches must be at least 1, got %d", o.MinMatches)
	}
	if o.MaxMismatches < 0 {
		return corpuserr.Validation("anchor options", "max mismatches must not be negative, got %d", o.MaxMismatches)
	}
	return nil
}

// Anchor is a stretch of a script trusted to align both sides. Start and
// End delimit it in the script (End exclusive); it begins and ends with a
// match.
type Anchor struct {
	Start      int
	End        int
	Matches    int
	Mismatches int
}

// Pairs returns the matched index pairs inside the anchor.
func (a Anchor) Pairs(s Script) [][2]int {
	return s[a.Start:a.End].Pairs()
}

// FindAnchors scans a script left to right for maximal stretches of at
// least MinMatches matches whose interior gaps cost at most MaxMismatches
// in total. Anchors never overlap and are returned in script order.
func FindAnchors(s Script, opts AnchorOptions) ([]Anchor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var anchors []Anchor
	i := 0
	for i < len(s) {
		if s[i].Op != Match {
			i++
			continue
		}
		cur := Anchor{Start: i, End: i}
		j := i
		for j < len(s) {
			if s[j].Op == Match {
				cur.Matches++
				j++
				cur.End = j
				continue
			}
			gapEnd, cost := gap(s, j)
			if gapEnd == len(s) || cur.Mismatches+cost > opts.MaxMismatches {
				break
			}
			cur.Mismatches += cost
			j = gapEnd
		}
		if cur.Matches >= opts.MinMatches {
			anchors = append(anchors, cur)
		}
		i = cur.End
	}
	return anchors, nil
}

// gap measures the run of non-matches starting at from. It returns the
// index after the run and the run's cost.
func gap(s Script, from int) (int, int) {
	ins, del := 0, 0
	j := from
	for j < len(s) && s[j].Op != Match {
		if s[j].Op == Insert {
			ins++
		} else {
			del++
		}
		j++
	}
	return j, max(ins, del)
}
