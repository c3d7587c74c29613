// Package structure describes the schema of a corpus: the annotation levels,
// their typed attributes and the metadata attributes of corpus objects.
//
// The types here are purely in-memory. Durable changes go through the
// repository, which applies them to the datastore before touching the
// in-memory structure.
package structure

import (
	"slices"
	"strings"

	"annotcore/internal/corpuserr"
)

// AnnotationStructure is the ordered list of levels of a corpus.
type AnnotationStructure struct {
	levels []*Level
}

// New returns a structure holding copies of levels.
func New(levels ...*Level) (*AnnotationStructure, error) {
	s := &AnnotationStructure{}
	for _, l := range levels {
		if err := s.AddLevel(l); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Level returns the level with the given ID.
func (s *AnnotationStructure) Level(id string) (*Level, bool) {
	if i := s.levelIndex(id); i >= 0 {
		return s.levels[i], true
	}
	return nil, false
}

// RequireLevel returns the level or a NotFound error.
func (s *AnnotationStructure) RequireLevel(id string) (*Level, error) {
	if l, ok := s.Level(id); ok {
		return l, nil
	}
	return nil, corpuserr.NotFound("level", id)
}

// Attribute returns an attribute of a level.
func (s *AnnotationStructure) Attribute(levelID, attributeID string) (*Attribute, bool) {
	l, ok := s.Level(levelID)
	if !ok {
		return nil, false
	}
	return l.Attribute(attributeID)
}

// Levels returns the levels in declaration order.
func (s *AnnotationStructure) Levels() []*Level { return slices.Clone(s.levels) }

// LevelIDs returns level IDs in declaration order.
func (s *AnnotationStructure) LevelIDs() []string {
	ids := make([]string, 0, len(s.levels))
	for _, l := range s.levels {
		ids = append(ids, l.ID)
	}
	return ids
}

// Position returns the declaration index of a level, or -1.
func (s *AnnotationStructure) Position(levelID string) int { return s.levelIndex(levelID) }

// AddLevel appends a copy of level. The ID must be new and well formed, the
// parent (if any) must already exist and attributes must be unique.
func (s *AnnotationStructure) AddLevel(level *Level) error {
	if err := s.CheckNewLevel(level); err != nil {
		return err
	}
	s.levels = append(s.levels, level.Clone())
	return nil
}

// CheckNewLevel validates level without adding it.
func (s *AnnotationStructure) CheckNewLevel(level *Level) error {
	if level == nil {
		return corpuserr.Validation("level", "nil level")
	}
	if err := ValidateLevelID(level.ID); err != nil {
		return err
	}
	if _, err := ParseLevelKind(string(level.Kind)); err != nil {
		return err
	}
	if existing, ok := s.clashingLevel(level.ID); ok {
		return corpuserr.SchemaConflict("level "+quote(level.ID), "already exists as %q", existing.ID)
	}
	if level.Kind.NeedsParent() && level.ParentLevelID == "" {
		return corpuserr.Validation("level "+quote(level.ID), "%s level requires a parent level", level.Kind)
	}
	if level.ParentLevelID != "" {
		parent, ok := s.Level(level.ParentLevelID)
		if !ok {
			return corpuserr.NotFound("level", level.ParentLevelID)
		}
		if level.Kind.NeedsParent() && parent.Kind.TierKind() != IndependentIntervals.TierKind() {
			return corpuserr.Validation("level "+quote(level.ID), "parent %q does not hold intervals", parent.ID)
		}
	}
	seen := map[string]bool{}
	for _, a := range level.Attributes {
		if err := ValidateAttributeID(a.ID); err != nil {
			return err
		}
		key := strings.ToLower(a.ID)
		if seen[key] {
			return corpuserr.SchemaConflict("attribute "+quote(a.ID), "declared twice on level %q", level.ID)
		}
		seen[key] = true
	}
	return nil
}

// RemoveLevel drops a level. Levels that other levels reference as parent
// cannot be removed.
func (s *AnnotationStructure) RemoveLevel(id string) error {
	i := s.levelIndex(id)
	if i < 0 {
		return corpuserr.NotFound("level", id)
	}
	for _, l := range s.levels {
		if l.ParentLevelID == id {
			return corpuserr.SchemaConflict("level "+quote(id), "is the parent of %q", l.ID)
		}
	}
	s.levels = slices.Delete(s.levels, i, i+1)
	return nil
}

// RenameLevel changes a level ID and updates child references.
func (s *AnnotationStructure) RenameLevel(oldID, newID string) error {
	l, ok := s.Level(oldID)
	if !ok {
		return corpuserr.NotFound("level", oldID)
	}
	if err := ValidateLevelID(newID); err != nil {
		return err
	}
	if oldID == newID {
		return nil
	}
	if existing, ok := s.clashingLevel(newID); ok {
		return corpuserr.SchemaConflict("level "+quote(newID), "already exists as %q", existing.ID)
	}
	l.ID = newID
	for _, child := range s.levels {
		if child.ParentLevelID == oldID {
			child.ParentLevelID = newID
		}
	}
	return nil
}

// AddAttribute appends a copy of attr to a level.
func (s *AnnotationStructure) AddAttribute(levelID string, attr *Attribute) error {
	l, err := s.RequireLevel(levelID)
	if err != nil {
		return err
	}
	if attr == nil {
		return corpuserr.Validation("attribute", "nil attribute")
	}
	if err := ValidateAttributeID(attr.ID); err != nil {
		return err
	}
	if existing, exists := l.clashingAttribute(attr.ID); exists {
		return corpuserr.SchemaConflict("attribute "+quote(attr.ID), "already exists on level %q as %q", levelID, existing.ID)
	}
	copied := *attr
	l.Attributes = append(l.Attributes, &copied)
	return nil
}

// RemoveAttribute drops an attribute from a level.
func (s *AnnotationStructure) RemoveAttribute(levelID, attributeID string) error {
	l, err := s.RequireLevel(levelID)
	if err != nil {
		return err
	}
	i := l.attributeIndex(attributeID)
	if i < 0 {
		return corpuserr.NotFound("attribute", levelID+"."+attributeID)
	}
	l.Attributes = slices.Delete(l.Attributes, i, i+1)
	return nil
}

// RenameAttribute changes an attribute ID.
func (s *AnnotationStructure) RenameAttribute(levelID, oldID, newID string) error {
	l, err := s.RequireLevel(levelID)
	if err != nil {
		return err
	}
	a, ok := l.Attribute(oldID)
	if !ok {
		return corpuserr.NotFound("attribute", levelID+"."+oldID)
	}
	if err := ValidateAttributeID(newID); err != nil {
		return err
	}
	if oldID == newID {
		return nil
	}
	if existing, exists := l.clashingAttribute(newID); exists {
		return corpuserr.SchemaConflict("attribute "+quote(newID), "already exists on level %q as %q", levelID, existing.ID)
	}
	a.ID = newID
	return nil
}

// RetypeAttribute changes the declared type of an attribute. Checking that
// stored values fit the new type is the datastore's job.
func (s *AnnotationStructure) RetypeAttribute(levelID, attributeID string, dt DataType) error {
	l, err := s.RequireLevel(levelID)
	if err != nil {
		return err
	}
	a, ok := l.Attribute(attributeID)
	if !ok {
		return corpuserr.NotFound("attribute", levelID+"."+attributeID)
	}
	a.DataType = dt
	return nil
}

// Clone returns a deep copy.
func (s *AnnotationStructure) Clone() *AnnotationStructure {
	out := &AnnotationStructure{levels: make([]*Level, len(s.levels))}
	for i, l := range s.levels {
		out.levels[i] = l.Clone()
	}
	return out
}

func (s *AnnotationStructure) levelIndex(id string) int {
	return slices.IndexFunc(s.levels, func(l *Level) bool { return l.ID == id })
}

// clashingLevel returns the level whose ID equals id ignoring case.
func (s *AnnotationStructure) clashingLevel(id string) (*Level, bool) {
	i := slices.IndexFunc(s.levels, func(l *Level) bool { return SameID(l.ID, id) })
	if i < 0 {
		return nil, false
	}
	return s.levels[i], true
}
