package annotation

// Kind enumerates the tier variants.
type Kind int

const (
	KindPoints Kind = iota + 1
	KindIntervals
	KindSequences
	KindRelations
)

func (k Kind) String() string {
	switch k {
	case KindPoints:
		return "points"
	case KindIntervals:
		return "intervals"
	case KindSequences:
		return "sequences"
	case KindRelations:
		return "relations"
	default:
		return "unknown"
	}
}

// Tier is implemented only by *PointTier, *IntervalTier, *SequenceTier and
// *RelationTier. Dispatch on the concrete type with a type switch.
type Tier interface {
	Name() string
	Kind() Kind
	Count() int
	IsEmpty() bool
	Clear()
	DistinctLabels(attributeID string) []string
	Replace(attributeID, before, after string)
	Relabel(attributeID string, fn func(string) string)
	FillEmptyWith(attributeID, filler string)

	tier()
}

var (
	_ Tier = (*PointTier)(nil)
	_ Tier = (*IntervalTier)(nil)
	_ Tier = (*SequenceTier)(nil)
	_ Tier = (*RelationTier)(nil)
)
