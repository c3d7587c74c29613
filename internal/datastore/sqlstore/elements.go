package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/structure"
)

// row is one stored element before it is shaped into a record.
type row struct {
	annotationID string
	speakerID    string
	item         int
	from, to     int64
	text         string
	attrs        annotation.Attributes
}

// selectionQuery renders the SELECT for sel on level. Time bounds on
// index-based levels are applied to the span of the parent intervals the
// element covers.
func selectionQuery(level, parent *structure.Level, sel datastore.Selection, attrs []*structure.Attribute) (string, []any) {
	from, to := positionColumns(level)
	cols := []string{"e.annotation_id", "e.speaker_id", "e.item_no", "e." + from, "e." + to, "e.xtext"}
	for _, a := range attrs {
		cols = append(cols, "e."+quoteIdent(a.ID))
	}

	var (
		where []string
		args  []any
		joins string
	)
	if sel.AnnotationID != "" {
		where = append(where, "e.annotation_id = ?")
		args = append(args, sel.AnnotationID)
	}
	if sel.SpeakerID != "" {
		where = append(where, "e.speaker_id = ?")
		args = append(args, sel.SpeakerID)
	}
	if lo := sel.IndexMin(); lo != datastore.NoIndex {
		where = append(where, "e.item_no >= ?")
		args = append(args, lo)
	}
	if hi := sel.IndexMax(); hi != datastore.NoIndex {
		where = append(where, "e.item_no <= ?")
		args = append(args, hi)
	}

	tMin, tMax := "e.t_min", "e.t_max"
	timed := sel.TimeMin() != datastore.NoTime || sel.TimeMax() != datastore.NoTime
	if timed && level.Kind.NeedsParent() && parent != nil {
		joins = fmt.Sprintf(`
		JOIN %[1]s p1 ON p1.annotation_id = e.annotation_id AND p1.speaker_id = e.speaker_id AND p1.item_no = e.index_from
		JOIN %[1]s p2 ON p2.annotation_id = e.annotation_id AND p2.speaker_id = e.speaker_id AND p2.item_no = e.index_to`,
			tableName(parent.ID))
		tMin, tMax = "MIN(p1.t_min, p2.t_min)", "MAX(p1.t_max, p2.t_max)"
	}
	if timed && (!level.Kind.NeedsParent() || parent != nil) {
		if lo := sel.TimeMin(); lo != datastore.NoTime {
			where = append(where, fmt.Sprintf("(%[2]s > ? OR (%[2]s = ? AND %[1]s = %[2]s))", tMin, tMax))
			args = append(args, int64(lo), int64(lo))
		}
		if hi := sel.TimeMax(); hi != datastore.NoTime {
			where = append(where, fmt.Sprintf("(%[1]s < ? OR (%[1]s = ? AND %[1]s = %[2]s))", tMin, tMax))
			args = append(args, int64(hi), int64(hi))
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s e%s", strings.Join(cols, ", "), tableName(level.ID), joins)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.annotation_id, e.speaker_id, e.item_no"
	return query, args
}

// selectedAttributes resolves attribute IDs against level; none means all.
func selectedAttributes(level *structure.Level, ids []string) ([]*structure.Attribute, error) {
	if ids == nil {
		return level.Attributes, nil
	}
	out := make([]*structure.Attribute, 0, len(ids))
	for _, id := range ids {
		a, ok := level.Attribute(id)
		if !ok {
			return nil, corpuserr.NotFound("attribute", level.ID+"."+id)
		}
		out = append(out, a)
	}
	return out, nil
}

// readRows runs a selection on q and decodes the rows.
func (s *Store) readRows(ctx context.Context, q queryer, sel datastore.Selection, want annotation.Kind) (*structure.Level, []row, error) {
	ctx = ensureContext(ctx)
	level, err := s.level(sel.LevelID)
	if err != nil {
		return nil, nil, err
	}
	if want != 0 && level.Kind.TierKind() != want {
		return nil, nil, corpuserr.Validation("level "+level.ID, "holds %s, not %s", level.Kind.TierKind(), want)
	}
	attrs, err := selectedAttributes(level, sel.AttributeIDs())
	if err != nil {
		return nil, nil, err
	}
	var parent *structure.Level
	if level.ParentLevelID != "" {
		parent, _ = s.structure.Level(level.ParentLevelID)
	}
	query, args := selectionQuery(level, parent, sel, attrs)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, corpuserr.IO("read level "+level.ID, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var (
			r    row
			item int64
			text any
		)
		raw := make([]any, len(attrs))
		dest := []any{&r.annotationID, &r.speakerID, &item, &r.from, &r.to, &text}
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, corpuserr.IO("read level "+level.ID, err)
		}
		r.item = int(item)
		if text, err = level.DataType.Coerce(text); err != nil {
			return nil, nil, err
		}
		if text != nil {
			r.text = annotation.ValueString(text)
		}
		for i, a := range attrs {
			v, err := a.DataType.Coerce(raw[i])
			if err != nil {
				return nil, nil, err
			}
			if v == nil {
				continue
			}
			if r.attrs == nil {
				r.attrs = annotation.Attributes{}
			}
			r.attrs[a.ID] = v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, corpuserr.IO("read level "+level.ID, err)
	}
	return level, out, nil
}

// Intervals returns the intervals matching sel.
func (s *Store) Intervals(ctx context.Context, sel datastore.Selection) ([]datastore.IntervalRecord, error) {
	_, rows, err := s.readRows(ctx, s.db, sel, annotation.KindIntervals)
	if err != nil {
		return nil, err
	}
	out := make([]datastore.IntervalRecord, len(rows))
	for i, r := range rows {
		out[i] = datastore.IntervalRecord{
			AnnotationID: r.annotationID, SpeakerID: r.speakerID, Index: r.item,
			Interval: r.interval(),
		}
	}
	return out, nil
}

// Points returns the points matching sel.
func (s *Store) Points(ctx context.Context, sel datastore.Selection) ([]datastore.PointRecord, error) {
	_, rows, err := s.readRows(ctx, s.db, sel, annotation.KindPoints)
	if err != nil {
		return nil, err
	}
	out := make([]datastore.PointRecord, len(rows))
	for i, r := range rows {
		out[i] = datastore.PointRecord{
			AnnotationID: r.annotationID, SpeakerID: r.speakerID, Index: r.item,
			Point: r.point(),
		}
	}
	return out, nil
}

// Sequences returns the sequences matching sel.
func (s *Store) Sequences(ctx context.Context, sel datastore.Selection) ([]datastore.SequenceRecord, error) {
	_, rows, err := s.readRows(ctx, s.db, sel, annotation.KindSequences)
	if err != nil {
		return nil, err
	}
	out := make([]datastore.SequenceRecord, len(rows))
	for i, r := range rows {
		out[i] = datastore.SequenceRecord{
			AnnotationID: r.annotationID, SpeakerID: r.speakerID, Index: r.item,
			Sequence: r.sequence(),
		}
	}
	return out, nil
}

// Relations returns the relations matching sel.
func (s *Store) Relations(ctx context.Context, sel datastore.Selection) ([]datastore.RelationRecord, error) {
	_, rows, err := s.readRows(ctx, s.db, sel, annotation.KindRelations)
	if err != nil {
		return nil, err
	}
	out := make([]datastore.RelationRecord, len(rows))
	for i, r := range rows {
		out[i] = datastore.RelationRecord{
			AnnotationID: r.annotationID, SpeakerID: r.speakerID, Index: r.item,
			Relation: annotation.Relation(r.sequence()),
		}
	}
	return out, nil
}

func (r row) interval() annotation.Interval {
	return annotation.Interval{
		TMin: annotation.RealTime(r.from), TMax: annotation.RealTime(r.to),
		Text: r.text, Attributes: r.attrs,
	}
}

func (r row) point() annotation.Point {
	return annotation.Point{Time: annotation.RealTime(r.from), Text: r.text, Attributes: r.attrs}
}

func (r row) sequence() annotation.Sequence {
	return annotation.Sequence{IndexFrom: int(r.from), IndexTo: int(r.to), Text: r.text, Attributes: r.attrs}
}

// toSQL maps a coerced Go value onto what the drivers store.
func toSQL(v any) any {
	switch x := v.(type) {
	case bool:
		return boolInt(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
