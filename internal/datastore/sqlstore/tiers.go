package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

// Tier loads one level of one speaker. A level without stored data yields
// an empty tier of the level's kind.
func (s *Store) Tier(ctx context.Context, annotationID, speakerID, levelID string, attributeIDs ...string) (annotation.Tier, error) {
	level, err := s.level(levelID)
	if err != nil {
		return nil, corpuserr.WithOp("load tier", err)
	}
	tier, _, err := s.loadTier(ctx, annotationID, speakerID, level, attributeIDs, nil)
	if err != nil {
		return nil, corpuserr.WithOp("load tier", err)
	}
	return tier, nil
}

// Tiers loads the given levels (all when none are named) of one speaker in
// declaration order. Levels without data for the speaker are left out.
func (s *Store) Tiers(ctx context.Context, annotationID, speakerID string, levelIDs ...string) (*annotation.TierGroup, error) {
	levels, err := s.levelsOrAll(levelIDs)
	if err != nil {
		return nil, corpuserr.WithOp("load tiers", err)
	}
	group := annotation.NewTierGroup(annotationID, speakerID)
	companions := map[string]*annotation.IntervalTier{}
	for _, level := range levels {
		tier, found, err := s.loadTier(ctx, annotationID, speakerID, level, nil, companions)
		if err != nil {
			return nil, corpuserr.WithOp("load tiers", err)
		}
		if it, ok := tier.(*annotation.IntervalTier); ok {
			companions[level.ID] = it
		}
		if found {
			group.Add(tier)
		}
	}
	return group, nil
}

// TiersAllSpeakers loads the given levels for every speaker of an
// annotation. Each level, plus the parent of every requested sequence or
// relation level, is read once inside a single transaction and split by
// speaker.
func (s *Store) TiersAllSpeakers(ctx context.Context, annotationID string, levelIDs ...string) (annotation.SpeakerTiers, error) {
	ctx = ensureContext(ctx)
	requested, err := s.levelsOrAll(levelIDs)
	if err != nil {
		return nil, corpuserr.WithOp("load tiers", err)
	}
	wanted := map[string]bool{}
	for _, level := range requested {
		wanted[level.ID] = true
	}
	var levels []*structure.Level
	for _, level := range s.structure.Levels() {
		if wanted[level.ID] || isCompanionOf(level.ID, requested) {
			levels = append(levels, level)
		}
	}

	bySpeaker := map[string]map[string][]row{}
	var speakers []string
	seen := map[string]bool{}
	err = withTx(ctx, s.db, "load tiers", func(tx *sql.Tx) error {
		for _, level := range levels {
			_, rows, err := s.readRows(ctx, tx, datastore.Select(annotationID, "", level.ID), 0)
			if err != nil {
				return err
			}
			for _, r := range rows {
				perLevel, ok := bySpeaker[r.speakerID]
				if !ok {
					perLevel = map[string][]row{}
					bySpeaker[r.speakerID] = perLevel
				}
				if wanted[level.ID] && !seen[r.speakerID] {
					seen[r.speakerID] = true
					speakers = append(speakers, r.speakerID)
				}
				perLevel[level.ID] = append(perLevel[level.ID], r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := annotation.SpeakerTiers{}
	for _, speakerID := range speakers {
		group := annotation.NewTierGroup(annotationID, speakerID)
		companions := map[string]*annotation.IntervalTier{}
		for _, level := range levels {
			rows := bySpeaker[speakerID][level.ID]
			tier, err := buildTier(level, rows, companions[level.ParentLevelID])
			if err != nil {
				return nil, corpuserr.WithOp("load tiers", err)
			}
			if it, ok := tier.(*annotation.IntervalTier); ok {
				companions[level.ID] = it
			}
			if wanted[level.ID] && len(rows) > 0 {
				group.Add(tier)
			}
		}
		out[speakerID] = group
	}
	return out, nil
}

// isCompanionOf reports whether levelID is the companion of a sequence or
// relation level in levels.
func isCompanionOf(levelID string, levels []*structure.Level) bool {
	return slices.ContainsFunc(levels, func(l *structure.Level) bool {
		kind := l.Kind.TierKind()
		return l.ParentLevelID == levelID && (kind == annotation.KindSequences || kind == annotation.KindRelations)
	})
}

// SaveTier replaces the stored tier named after its level.
func (s *Store) SaveTier(ctx context.Context, annotationID, speakerID string, tier annotation.Tier) error {
	ctx = ensureContext(ctx)
	err := withTx(ctx, s.db, "save tier", func(tx *sql.Tx) error {
		return s.writeTier(ctx, tx, annotationID, speakerID, tier)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("tier saved",
		logging.String(logging.FieldAnnotationID, annotationID),
		logging.String(logging.FieldSpeakerID, speakerID),
		logging.String(logging.FieldLevelID, tier.Name()),
		logging.Int("elements", tier.Count()),
	)
	return nil
}

// SaveTiers replaces every tier of a group in one transaction.
func (s *Store) SaveTiers(ctx context.Context, group *annotation.TierGroup) error {
	ctx = ensureContext(ctx)
	return withTx(ctx, s.db, "save tiers", func(tx *sql.Tx) error {
		for _, tier := range group.Tiers() {
			if err := s.writeTier(ctx, tx, group.AnnotationID, group.SpeakerID, tier); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTiersAllSpeakers saves the groups of every speaker in one
// transaction. Map keys are the speaker IDs.
func (s *Store) SaveTiersAllSpeakers(ctx context.Context, annotationID string, tiers annotation.SpeakerTiers) error {
	ctx = ensureContext(ctx)
	err := withTx(ctx, s.db, "save tiers", func(tx *sql.Tx) error {
		for _, speakerID := range tiers.Speakers() {
			for _, tier := range tiers[speakerID].Tiers() {
				if err := s.writeTier(ctx, tx, annotationID, speakerID, tier); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("tiers saved",
		logging.String(logging.FieldAnnotationID, annotationID),
		logging.Int("speakers", len(tiers)),
	)
	return nil
}

// DeleteTier removes the stored data of one level of one speaker.
func (s *Store) DeleteTier(ctx context.Context, annotationID, speakerID, levelID string) error {
	return s.DeleteTiers(ctx, annotationID, speakerID, levelID)
}

// DeleteTiers removes the given levels (all when none are named) of one
// speaker.
func (s *Store) DeleteTiers(ctx context.Context, annotationID, speakerID string, levelIDs ...string) error {
	ctx = ensureContext(ctx)
	levels, err := s.levelsOrAll(levelIDs)
	if err != nil {
		return corpuserr.WithOp("delete tiers", err)
	}
	return withTx(ctx, s.db, "delete tiers", func(tx *sql.Tx) error {
		for _, level := range levels {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableName(level.ID)+" WHERE annotation_id = ? AND speaker_id = ?",
				annotationID, speakerID); err != nil {
				return fmt.Errorf("delete %s: %w", level.ID, err)
			}
		}
		return nil
	})
}

// DeleteAllTiersAllSpeakers removes every element of an annotation.
func (s *Store) DeleteAllTiersAllSpeakers(ctx context.Context, annotationID string) error {
	ctx = ensureContext(ctx)
	return withTx(ctx, s.db, "delete annotation tiers", func(tx *sql.Tx) error {
		for _, level := range s.structure.Levels() {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableName(level.ID)+" WHERE annotation_id = ?", annotationID); err != nil {
				return fmt.Errorf("delete %s: %w", level.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) levelsOrAll(levelIDs []string) ([]*structure.Level, error) {
	if len(levelIDs) == 0 {
		return s.structure.Levels(), nil
	}
	for _, id := range levelIDs {
		if _, err := s.level(id); err != nil {
			return nil, err
		}
	}
	var out []*structure.Level
	for _, l := range s.structure.Levels() {
		if slices.Contains(levelIDs, l.ID) {
			out = append(out, l)
		}
	}
	return out, nil
}

// loadTier builds the tier of level. companions caches interval tiers that
// sequence and relation tiers bind to; it may be nil. found reports whether
// any element was stored.
func (s *Store) loadTier(ctx context.Context, annotationID, speakerID string, level *structure.Level,
	attributeIDs []string, companions map[string]*annotation.IntervalTier) (annotation.Tier, bool, error) {
	sel := datastore.Select(annotationID, speakerID, level.ID)
	if attributeIDs != nil {
		sel = sel.WithAttributes(attributeIDs...)
	}
	_, rows, err := s.readRows(ctx, s.db, sel, 0)
	if err != nil {
		return nil, false, err
	}
	var companion *annotation.IntervalTier
	switch level.Kind.TierKind() {
	case annotation.KindSequences, annotation.KindRelations:
		var ok bool
		companion, ok = companions[level.ParentLevelID]
		if !ok {
			parent, err := s.level(level.ParentLevelID)
			if err != nil {
				return nil, false, err
			}
			t, _, err := s.loadTier(ctx, annotationID, speakerID, parent, nil, nil)
			if err != nil {
				return nil, false, err
			}
			companion = t.(*annotation.IntervalTier)
		}
	}
	tier, err := buildTier(level, rows, companion)
	if err != nil {
		return nil, false, err
	}
	return tier, len(rows) > 0, nil
}

// buildTier turns the stored rows of one speaker's level into a tier.
// Sequence and relation levels bind to companion; a nil companion stands
// for a parent without data.
func buildTier(level *structure.Level, rows []row, companion *annotation.IntervalTier) (annotation.Tier, error) {
	switch level.Kind.TierKind() {
	case annotation.KindPoints:
		points := make([]annotation.Point, len(rows))
		for i, r := range rows {
			points[i] = r.point()
		}
		return annotation.NewPointTier(level.ID, points, 0, 0), nil

	case annotation.KindIntervals:
		if len(rows) == 0 {
			return annotation.NewIntervalTier(level.ID, 0, 0)
		}
		intervals := make([]annotation.Interval, len(rows))
		for i, r := range rows {
			intervals[i] = r.interval()
		}
		tier, err := annotation.BuildIntervalTier(level.ID, intervals, intervals[0].TMin, intervals[len(intervals)-1].TMax, "")
		if err != nil {
			return nil, corpuserr.WithOp("rebuild level "+level.ID, err)
		}
		return tier, nil

	case annotation.KindSequences, annotation.KindRelations:
		if companion == nil {
			empty, err := annotation.NewIntervalTier(level.ParentLevelID, 0, 0)
			if err != nil {
				return nil, err
			}
			companion = empty
		}
		if level.Kind.TierKind() == annotation.KindRelations {
			relations := make([]annotation.Relation, len(rows))
			for i, r := range rows {
				relations[i] = annotation.Relation(r.sequence())
			}
			return annotation.NewRelationTier(level.ID, companion, relations)
		}
		sequences := make([]annotation.Sequence, len(rows))
		for i, r := range rows {
			sequences[i] = r.sequence()
		}
		return annotation.NewSequenceTier(level.ID, companion, sequences)
	}
	return nil, corpuserr.Validation("level "+level.ID, "unsupported kind %s", level.Kind)
}

// element is the storable form of one tier element.
type element struct {
	from, to int64
	text     string
	attrs    annotation.Attributes
}

func tierElements(tier annotation.Tier) ([]element, error) {
	var out []element
	switch t := tier.(type) {
	case *annotation.IntervalTier:
		for _, iv := range t.Intervals() {
			out = append(out, element{int64(iv.TMin), int64(iv.TMax), iv.Text, iv.Attributes})
		}
	case *annotation.PointTier:
		for _, p := range t.Points() {
			out = append(out, element{int64(p.Time), int64(p.Time), p.Text, p.Attributes})
		}
	case *annotation.SequenceTier:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		for _, sq := range t.Sequences() {
			out = append(out, element{int64(sq.IndexFrom), int64(sq.IndexTo), sq.Text, sq.Attributes})
		}
	case *annotation.RelationTier:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		for _, rel := range t.Relations() {
			out = append(out, element{int64(rel.IndexFrom), int64(rel.IndexTo), rel.Text, rel.Attributes})
		}
	default:
		return nil, corpuserr.Validation("tier", "unsupported tier type %T", tier)
	}
	return out, nil
}

// writeTier replaces the stored data of one tier inside tx.
func (s *Store) writeTier(ctx context.Context, tx *sql.Tx, annotationID, speakerID string, tier annotation.Tier) error {
	if tier == nil {
		return corpuserr.Validation("tier", "nil tier")
	}
	level, err := s.level(tier.Name())
	if err != nil {
		return err
	}
	if level.Kind.TierKind() != tier.Kind() {
		return corpuserr.Validation("tier "+tier.Name(), "level holds %s, tier holds %s", level.Kind.TierKind(), tier.Kind())
	}
	elements, err := tierElements(tier)
	if err != nil {
		return err
	}

	table := tableName(level.ID)
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE annotation_id = ? AND speaker_id = ?",
		annotationID, speakerID); err != nil {
		return fmt.Errorf("clear %s: %w", level.ID, err)
	}
	if len(elements) == 0 {
		return nil
	}

	from, to := positionColumns(level)
	cols := []string{"annotation_id", "speaker_id", "item_no", from, to, "xtext"}
	for _, a := range level.Attributes {
		cols = append(cols, quoteIdent(a.ID))
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols))))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", level.ID, err)
	}
	defer stmt.Close()

	for i, el := range elements {
		args, err := elementArgs(level, annotationID, speakerID, i, el)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", level.ID, err)
		}
	}
	return nil
}

func elementArgs(level *structure.Level, annotationID, speakerID string, item int, el element) ([]any, error) {
	for id := range el.attrs {
		if _, ok := level.Attribute(id); !ok {
			return nil, corpuserr.Validation("level "+level.ID, "attribute %q is not declared", id)
		}
	}
	var text any
	if el.text != "" {
		v, err := level.DataType.Coerce(el.text)
		if err != nil {
			return nil, fmt.Errorf("label of element %d: %w", item, err)
		}
		text = toSQL(v)
	}
	args := []any{annotationID, speakerID, item, el.from, el.to, text}
	for _, a := range level.Attributes {
		v, err := a.DataType.Coerce(el.attrs[a.ID])
		if err != nil {
			return nil, fmt.Errorf("attribute %s of element %d: %w", a.ID, item, err)
		}
		args = append(args, toSQL(v))
	}
	return args, nil
}
