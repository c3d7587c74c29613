package structure

import (
	"regexp"
	"slices"
	"strings"

	"annotcore/internal/annotation"
	"annotcore/internal/corpuserr"
)

// LevelKind names the shape of the elements stored on a level.
type LevelKind string

const (
	IndependentPoints    LevelKind = "independentpoints"
	IndependentIntervals LevelKind = "independentintervals"
	Grouping             LevelKind = "grouping"
	Sequences            LevelKind = "sequences"
	Tree                 LevelKind = "tree"
	Relations            LevelKind = "relations"
)

// ParseLevelKind validates a level kind name.
func ParseLevelKind(value string) (LevelKind, error) {
	switch k := LevelKind(value); k {
	case IndependentPoints, IndependentIntervals, Grouping, Sequences, Tree, Relations:
		return k, nil
	case "":
		return IndependentIntervals, nil
	}
	return "", corpuserr.Validation("level kind", "unknown kind %q", value)
}

// TierKind maps the level kind onto the tier variant that holds its data.
func (k LevelKind) TierKind() annotation.Kind {
	switch k {
	case IndependentPoints:
		return annotation.KindPoints
	case Sequences:
		return annotation.KindSequences
	case Relations:
		return annotation.KindRelations
	default:
		return annotation.KindIntervals
	}
}

// NeedsParent reports whether elements of this kind index a parent level.
func (k LevelKind) NeedsParent() bool {
	return k == Sequences || k == Relations
}

// Attribute is a typed column declared on a level.
type Attribute struct {
	ID                     string
	Name                   string
	Description            string
	DataType               DataType
	Indexed                bool
	NameValueList          string
	StatLevelOfMeasurement string
}

// Level is a declared annotation level and its attributes.
type Level struct {
	ID            string
	Kind          LevelKind
	ParentLevelID string
	Name          string
	Description   string
	DataType      DataType
	Indexed       bool
	NameValueList string
	Attributes    []*Attribute
}

// Attribute returns the attribute with the given ID.
func (l *Level) Attribute(id string) (*Attribute, bool) {
	for _, a := range l.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// AttributeIDs returns attribute IDs in declaration order.
func (l *Level) AttributeIDs() []string {
	ids := make([]string, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		ids = append(ids, a.ID)
	}
	return ids
}

// Clone returns a deep copy.
func (l *Level) Clone() *Level {
	out := *l
	out.Attributes = make([]*Attribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attr := *a
		out.Attributes[i] = &attr
	}
	return &out
}

func (l *Level) attributeIndex(id string) int {
	return slices.IndexFunc(l.Attributes, func(a *Attribute) bool { return a.ID == id })
}

// clashingAttribute returns the attribute whose ID equals id ignoring case.
func (l *Level) clashingAttribute(id string) (*Attribute, bool) {
	i := slices.IndexFunc(l.Attributes, func(a *Attribute) bool { return SameID(a.ID, id) })
	if i < 0 {
		return nil, false
	}
	return l.Attributes[i], true
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReservedColumns are the fixed columns of every level store and the names
// SQLite keeps for the row ID.
var ReservedColumns = []string{
	"annotation_id", "speaker_id", "item_no", "t_min", "t_max", "index_from", "index_to", "xtext",
	"rowid", "oid", "_rowid_",
}

// SameID reports whether two identifiers name the same store object.
// SQLite compares identifiers without regard to ASCII case.
func SameID(a, b string) bool { return strings.EqualFold(a, b) }

// ValidateLevelID checks that id can name a level store.
func ValidateLevelID(id string) error {
	if !identifierPattern.MatchString(id) {
		return corpuserr.Validation("level "+quote(id), "identifier must match %s", identifierPattern)
	}
	return nil
}

// ValidateAttributeID checks that id can name a column of a level store.
func ValidateAttributeID(id string) error {
	if !identifierPattern.MatchString(id) {
		return corpuserr.Validation("attribute "+quote(id), "identifier must match %s", identifierPattern)
	}
	if slices.ContainsFunc(ReservedColumns, func(c string) bool { return SameID(c, id) }) {
		return corpuserr.Validation("attribute "+quote(id), "identifier is reserved")
	}
	return nil
}

func quote(id string) string { return `"` + id + `"` }
