// Package datastore defines the storage contract for annotation data and
// corpus metadata.
//
// Implementations keep one physical store per level whose columns mirror the
// level's declared attributes. Saves replace everything stored under the
// (annotation, speaker, level) key and are all-or-nothing. Every method
// reports failures through its error result; classify them with
// corpuserr.KindOf.
//
// Datastores are not safe for concurrent use. Callers serialise access, for
// example by giving each worker its own repository.
package datastore

import (
	"context"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/structure"
)

// StructureStore persists level and attribute declarations.
type StructureStore interface {
	LoadStructure(ctx context.Context) (*structure.AnnotationStructure, error)
	CreateLevel(ctx context.Context, level *structure.Level) error
	RenameLevel(ctx context.Context, levelID, newLevelID string) error
	DeleteLevel(ctx context.Context, levelID string) error
	CreateAttribute(ctx context.Context, levelID string, attr *structure.Attribute) error
	RenameAttribute(ctx context.Context, levelID, attributeID, newAttributeID string) error
	DeleteAttribute(ctx context.Context, levelID, attributeID string) error
	// RetypeAttribute fails with a schema conflict when a stored value
	// cannot be represented in the new type; nothing is changed then.
	RetypeAttribute(ctx context.Context, levelID, attributeID string, dt structure.DataType) error
}

// ElementReader returns raw elements matching a selection. LevelID is
// required; other selection fields are optional.
type ElementReader interface {
	Intervals(ctx context.Context, sel Selection) ([]IntervalRecord, error)
	Points(ctx context.Context, sel Selection) ([]PointRecord, error)
	Sequences(ctx context.Context, sel Selection) ([]SequenceRecord, error)
	Relations(ctx context.Context, sel Selection) ([]RelationRecord, error)
}

// TierStore reads and writes whole tiers. The tier name is the level ID.
type TierStore interface {
	Tier(ctx context.Context, annotationID, speakerID, levelID string, attributeIDs ...string) (annotation.Tier, error)
	// Tiers returns one group for a speaker; no level IDs means all levels.
	Tiers(ctx context.Context, annotationID, speakerID string, levelIDs ...string) (*annotation.TierGroup, error)
	// TiersAllSpeakers returns every speaker's group of one annotation.
	TiersAllSpeakers(ctx context.Context, annotationID string, levelIDs ...string) (annotation.SpeakerTiers, error)
	SaveTier(ctx context.Context, annotationID, speakerID string, tier annotation.Tier) error
	SaveTiers(ctx context.Context, group *annotation.TierGroup) error
	SaveTiersAllSpeakers(ctx context.Context, annotationID string, tiers annotation.SpeakerTiers) error
	DeleteTier(ctx context.Context, annotationID, speakerID, levelID string) error
	// DeleteTiers removes the given levels of a speaker; no level IDs means all.
	DeleteTiers(ctx context.Context, annotationID, speakerID string, levelIDs ...string) error
	DeleteAllTiersAllSpeakers(ctx context.Context, annotationID string) error
}

// Discovery lists what is stored.
type Discovery interface {
	AnnotationIDs(ctx context.Context) ([]string, error)
	// SpeakersInLevel lists speakers with data on a level. With activeOnly,
	// speakers whose labels are all blank or pauses are skipped.
	SpeakersInLevel(ctx context.Context, annotationID, levelID string, activeOnly bool) ([]string, error)
	SpeakersInAnnotation(ctx context.Context, annotationID string, activeOnly bool) ([]string, error)
	// SpeakerTimeline segments an annotation at every boundary of levelID
	// and labels each segment with the speakers talking in it ("A+B").
	// Unless detailed, identical neighbouring segments are merged.
	SpeakerTimeline(ctx context.Context, annotationID, levelID string, detailed bool) (*annotation.IntervalTier, error)
}

// Aggregates runs corpus-wide queries over one level.
type Aggregates interface {
	// DistinctLabels groups a level by the given attributes ("" is the
	// label) and counts occurrences.
	DistinctLabels(ctx context.Context, levelID string, attributeIDs ...string) ([]LabelCount, error)
	// BatchUpdate sets attributeID to value on every element matching all
	// criteria and returns the number of elements changed.
	BatchUpdate(ctx context.Context, levelID, attributeID string, value any, criteria ...Criterion) (int64, error)
	CountItems(ctx context.Context, levelID string, opts CountOptions) ([]LabelCount, error)
}

// AnnotationDatastore is the full annotation storage contract.
type AnnotationDatastore interface {
	StructureStore
	ElementReader
	TierStore
	Discovery
	Aggregates
	Health(ctx context.Context) (Health, error)
	Close() error
}

// MetadataDatastore stores annotation records and their metadata
// attributes.
type MetadataDatastore interface {
	LoadStructure(ctx context.Context) (*structure.MetadataStructure, error)
	CreateAttribute(ctx context.Context, object structure.ObjectType, attr *structure.Attribute) error
	SaveAnnotation(ctx context.Context, record AnnotationRecord) error
	Annotation(ctx context.Context, id string) (AnnotationRecord, error)
	Annotations(ctx context.Context) ([]AnnotationRecord, error)
	DeleteAnnotation(ctx context.Context, id string) error
	Close() error
}

// IntervalRecord is an interval together with its storage key.
type IntervalRecord struct {
	AnnotationID string
	SpeakerID    string
	Index        int
	annotation.Interval
}

// PointRecord is a point together with its storage key.
type PointRecord struct {
	AnnotationID string
	SpeakerID    string
	Index        int
	annotation.Point
}

// SequenceRecord is a sequence together with its storage key.
type SequenceRecord struct {
	AnnotationID string
	SpeakerID    string
	Index        int
	annotation.Sequence
}

// RelationRecord is a relation together with its storage key.
type RelationRecord struct {
	AnnotationID string
	SpeakerID    string
	Index        int
	annotation.Relation
}

// LabelCount is one group of an aggregate query: the grouped values in
// attribute order and the number of elements carrying them. NULL values are
// reported as nil.
type LabelCount struct {
	Values []any
	Count  int64
}

// Key joins the display form of the values with "|".
func (l LabelCount) Key() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = annotation.ValueString(v)
	}
	return strings.Join(parts, "|")
}

// Criterion is an equality filter; an empty AttributeID means the label. A
// nil Value matches NULL.
type Criterion struct {
	AttributeID string
	Value       any
}

// CountOptions configures CountItems.
type CountOptions struct {
	// GroupBy lists the attributes to group on; "" is the label. Empty means
	// a single total.
	GroupBy []string
	// ExcludeNull drops groups where any grouped value is NULL.
	ExcludeNull bool
	// ExcludeValues drops groups where any grouped value equals one of these.
	ExcludeValues []string
}

// Health summarises the state of a datastore.
type Health struct {
	Path         string
	Driver       string
	SizeBytes    int64
	Integrity    string
	Levels       int
	LevelTables  map[string]bool
	ElementCount map[string]int64
}

// Healthy reports whether the integrity check passed and every level has a
// backing table.
func (h Health) Healthy() bool {
	if h.Integrity != "ok" {
		return false
	}
	for _, ok := range h.LevelTables {
		if !ok {
			return false
		}
	}
	return true
}

// AnnotationRecord describes one annotation unit.
type AnnotationRecord struct {
	ID              string
	CommunicationID string
	Name            string
	Attributes      map[string]any
}
