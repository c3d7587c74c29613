package sqlstore

import (
	"context"
	"slices"
	"sort"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/structure"
)

// activeFilter keeps elements whose label is neither empty nor a pause.
const activeFilter = " AND xtext IS NOT NULL AND xtext NOT IN ('', '" + annotation.PauseMarker + "')"

// AnnotationIDs lists every annotation with stored elements, sorted.
func (s *Store) AnnotationIDs(ctx context.Context) ([]string, error) {
	levels := s.structure.Levels()
	if len(levels) == 0 {
		return nil, nil
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = "SELECT annotation_id FROM " + tableName(l.ID)
	}
	query := strings.Join(parts, " UNION ") + " ORDER BY 1"
	ids, err := s.queryStrings(ctx, query)
	if err != nil {
		return nil, corpuserr.IO("list annotations", err)
	}
	return ids, nil
}

// SpeakersInLevel lists the speakers with elements on a level of an
// annotation, sorted.
func (s *Store) SpeakersInLevel(ctx context.Context, annotationID, levelID string, activeOnly bool) ([]string, error) {
	level, err := s.level(levelID)
	if err != nil {
		return nil, corpuserr.WithOp("list speakers", err)
	}
	query, args := speakerQuery(level, annotationID, activeOnly)
	ids, err := s.queryStrings(ctx, query+" ORDER BY 1", args...)
	if err != nil {
		return nil, corpuserr.IO("list speakers", err)
	}
	return ids, nil
}

// SpeakersInAnnotation lists the speakers with elements on any level of an
// annotation, sorted.
func (s *Store) SpeakersInAnnotation(ctx context.Context, annotationID string, activeOnly bool) ([]string, error) {
	levels := s.structure.Levels()
	if len(levels) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(levels))
	var args []any
	for _, l := range levels {
		q, a := speakerQuery(l, annotationID, activeOnly)
		parts = append(parts, q)
		args = append(args, a...)
	}
	ids, err := s.queryStrings(ctx, strings.Join(parts, " UNION ")+" ORDER BY 1", args...)
	if err != nil {
		return nil, corpuserr.IO("list speakers", err)
	}
	return ids, nil
}

func speakerQuery(level *structure.Level, annotationID string, activeOnly bool) (string, []any) {
	query := "SELECT DISTINCT speaker_id FROM " + tableName(level.ID) + " WHERE annotation_id = ?"
	if activeOnly {
		query += activeFilter
	}
	return query, []any{annotationID}
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SpeakerTimeline cuts an annotation at every interval boundary stored on
// levelID, for all speakers, and labels each segment with the speakers whose
// interval at the segment centre is neither blank nor a pause. Labels join
// speaker IDs with "+" in sorted order. Unless detailed, neighbouring
// segments with the same label are merged.
func (s *Store) SpeakerTimeline(ctx context.Context, annotationID, levelID string, detailed bool) (*annotation.IntervalTier, error) {
	records, err := s.Intervals(ctx, datastore.Select(annotationID, "", levelID))
	if err != nil {
		return nil, corpuserr.WithOp("speaker timeline", err)
	}
	const tierName = "speakers"
	if len(records) == 0 {
		return annotation.NewIntervalTier(tierName, 0, 0)
	}

	bySpeaker := map[string][]annotation.Interval{}
	var boundaries []annotation.RealTime
	for _, r := range records {
		bySpeaker[r.SpeakerID] = append(bySpeaker[r.SpeakerID], r.Interval)
		boundaries = append(boundaries, r.TMin, r.TMax)
	}
	slices.Sort(boundaries)
	boundaries = slices.Compact(boundaries)
	speakers := make([]string, 0, len(bySpeaker))
	for id := range bySpeaker {
		speakers = append(speakers, id)
	}
	sort.Strings(speakers)

	segments := make([]annotation.Interval, 0, len(boundaries))
	for i := 1; i < len(boundaries); i++ {
		lo, hi := boundaries[i-1], boundaries[i]
		center := lo + (hi-lo)/2
		var active []string
		for _, id := range speakers {
			if speakerActiveAt(bySpeaker[id], center) {
				active = append(active, id)
			}
		}
		segments = append(segments, annotation.Interval{TMin: lo, TMax: hi, Text: strings.Join(active, "+")})
	}
	tier, err := annotation.BuildIntervalTier(tierName, segments, boundaries[0], boundaries[len(boundaries)-1], "")
	if err != nil {
		return nil, corpuserr.WithOp("speaker timeline", err)
	}
	if !detailed {
		tier.MergeIdenticalAnnotations("")
	}
	return tier, nil
}

// speakerActiveAt reports whether a time-sorted interval list has a
// non-blank, non-pause interval covering t.
func speakerActiveAt(intervals []annotation.Interval, t annotation.RealTime) bool {
	i := sort.Search(len(intervals), func(i int) bool { return intervals[i].TMax > t })
	if i >= len(intervals) || intervals[i].TMin > t {
		return false
	}
	iv := intervals[i]
	return !iv.IsBlank() && !iv.IsPause()
}
