package batch

import (
	"context"
	"slices"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/diff"
	"annotcore/internal/logging"
	"annotcore/internal/textutil"
	"annotcore/internal/timeline"
)

// CompareOptions configures a compare pass.
type CompareOptions struct {
	Options
	// Levels to compare; empty means every interval level declared on both
	// sides.
	Levels []string
	// Key projects intervals for comparison; nil compares labels.
	Key diff.Key[annotation.Interval]
	// SkipPauses leaves pauses and blanks out of the comparison.
	SkipPauses bool
	ReportPath string
}

// TierComparison is the outcome for one (annotation, speaker, level).
type TierComparison struct {
	AnnotationID string
	SpeakerID    string
	timeline.Summary
	// Identical is set when both tiers hash alike; the diff is skipped then.
	Identical bool
	// Similarity is the cosine similarity of the two transcripts.
	Similarity float64
}

// Compare diffs the interval tiers of two corpora annotation by annotation.
// Annotations, speakers or tiers present on one side only are reported as
// not found.
func Compare(ctx context.Context, left, right datastore.AnnotationDatastore, opts CompareOptions) ([]TierComparison, *Report, error) {
	if left == nil || right == nil {
		return nil, nil, corpuserr.Validation("compare", "two datastores are required")
	}
	ctx, r := newRunner(ctx, "compare", opts.Options)
	levels, err := compareLevels(ctx, left, right, opts.Levels)
	if err != nil {
		return nil, r.report, corpuserr.WithOp("compare", err)
	}
	leftIDs, err := left.AnnotationIDs(ctx)
	if err != nil {
		return nil, r.report, corpuserr.WithOp("compare", err)
	}
	rightIDs, err := right.AnnotationIDs(ctx)
	if err != nil {
		return nil, r.report, corpuserr.WithOp("compare", err)
	}

	var results []TierComparison
	err = r.run(ctx, union(leftIDs, rightIDs), func(ctx context.Context, annotationID string) error {
		if !slices.Contains(leftIDs, annotationID) {
			return corpuserr.NotFound("annotation on left", annotationID)
		}
		if !slices.Contains(rightIDs, annotationID) {
			return corpuserr.NotFound("annotation on right", annotationID)
		}
		for _, levelID := range levels {
			ls, err := left.SpeakersInLevel(ctx, annotationID, levelID, false)
			if err != nil {
				return err
			}
			rs, err := right.SpeakersInLevel(ctx, annotationID, levelID, false)
			if err != nil {
				return err
			}
			for _, speakerID := range union(ls, rs) {
				tc, err := compareTier(ctx, left, right, annotationID, speakerID, levelID, opts)
				if err != nil {
					if fatal(ctx, err) {
						return err
					}
					r.report.addError(annotationID, onTier(speakerID, levelID, err))
					continue
				}
				if !tc.Identical {
					r.report.Changed++
				}
				r.logger.Debug("tier compared",
					logging.String(logging.FieldAnnotationID, annotationID),
					logging.String(logging.FieldSpeakerID, speakerID),
					logging.String(logging.FieldLevelID, levelID),
					logging.Int("differences", tc.Differences),
					logging.Float64("similarity", tc.Similarity),
				)
				results = append(results, tc)
			}
		}
		return nil
	})
	if saveErr := saveReport(r, opts.ReportPath); saveErr != nil && err == nil {
		err = saveErr
	}
	return results, r.report, err
}

func compareTier(ctx context.Context, left, right datastore.TierStore, annotationID, speakerID, levelID string, opts CompareOptions) (TierComparison, error) {
	tc := TierComparison{AnnotationID: annotationID, SpeakerID: speakerID, Summary: timeline.Summary{LevelID: levelID}}
	a, err := loadIntervals(ctx, left, annotationID, speakerID, levelID)
	if err != nil {
		return tc, err
	}
	b, err := loadIntervals(ctx, right, annotationID, speakerID, levelID)
	if err != nil {
		return tc, err
	}
	switch {
	case a.IsEmpty() && b.IsEmpty():
		tc.Identical, tc.Similarity = true, 1
		return tc, nil
	case a.IsEmpty():
		return tc, corpuserr.NotFound("tier on left", levelID)
	case b.IsEmpty():
		return tc, corpuserr.NotFound("tier on right", levelID)
	}

	if Fingerprint(a) == Fingerprint(b) {
		tc.Identical, tc.Similarity = true, 1
		tc.Matches = a.Count()
		return tc, nil
	}
	cmp, err := diff.Intervals(a, b, diff.Options{Key: opts.Key, SkipPauses: opts.SkipPauses})
	if err != nil {
		return tc, err
	}
	tc.Summary = timeline.Summaries([]timeline.LevelDiff{{LevelID: levelID, Comparison: cmp}})[0]
	tc.Identical = tc.Differences == 0
	tc.Similarity = textutil.Similarity(transcript(a), transcript(b))
	return tc, nil
}

func loadIntervals(ctx context.Context, store datastore.TierStore, annotationID, speakerID, levelID string) (*annotation.IntervalTier, error) {
	tier, err := store.Tier(ctx, annotationID, speakerID, levelID)
	if err != nil {
		return nil, err
	}
	it, ok := tier.(*annotation.IntervalTier)
	if !ok {
		return nil, corpuserr.Validation("level "+levelID, "is a %s level, not intervals", tier.Kind())
	}
	return it, nil
}

// compareLevels returns the requested levels, or every interval level the
// two sides share, in left declaration order.
func compareLevels(ctx context.Context, left, right datastore.StructureStore, requested []string) ([]string, error) {
	ls, err := left.LoadStructure(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := right.LoadStructure(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, level := range ls.Levels() {
		if len(requested) > 0 && !slices.Contains(requested, level.ID) {
			continue
		}
		other, ok := rs.Level(level.ID)
		if level.Kind.TierKind() != annotation.KindIntervals {
			if len(requested) > 0 {
				return nil, corpuserr.Validation("level "+level.ID, "only interval levels can be compared")
			}
			continue
		}
		if !ok || other.Kind.TierKind() != annotation.KindIntervals {
			if len(requested) > 0 {
				return nil, corpuserr.NotFound("interval level on right", level.ID)
			}
			continue
		}
		out = append(out, level.ID)
	}
	for _, id := range requested {
		if !slices.Contains(out, id) {
			return nil, corpuserr.NotFound("level", id)
		}
	}
	return out, nil
}

func transcript(t *annotation.IntervalTier) string {
	words := make([]string, 0, t.Count())
	for _, iv := range t.Intervals() {
		if !iv.IsBlank() && !iv.IsPause() {
			words = append(words, iv.Text)
		}
	}
	return strings.Join(words, " ")
}

// union returns a then the elements of b missing from a.
func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
