package structure

import (
	"slices"

	"annotcore/internal/corpuserr"
)

// ObjectType identifies the corpus object a metadata attribute describes.
type ObjectType string

const (
	ObjectCorpus        ObjectType = "corpus"
	ObjectCommunication ObjectType = "communication"
	ObjectSpeaker       ObjectType = "speaker"
	ObjectRecording     ObjectType = "recording"
	ObjectAnnotation    ObjectType = "annotation"
	ObjectParticipation ObjectType = "participation"
)

// ObjectTypes lists every object type in display order.
var ObjectTypes = []ObjectType{
	ObjectCorpus, ObjectCommunication, ObjectSpeaker, ObjectRecording, ObjectAnnotation, ObjectParticipation,
}

// ParseObjectType validates an object type name.
func ParseObjectType(value string) (ObjectType, error) {
	if slices.Contains(ObjectTypes, ObjectType(value)) {
		return ObjectType(value), nil
	}
	return "", corpuserr.Validation("object type", "unknown type %q", value)
}

// MetadataStructure holds the metadata attributes declared per object type.
type MetadataStructure struct {
	attributes map[ObjectType][]*Attribute
}

// NewMetadataStructure returns an empty metadata structure.
func NewMetadataStructure() *MetadataStructure {
	return &MetadataStructure{attributes: map[ObjectType][]*Attribute{}}
}

// Attributes returns the attributes of an object type in declaration order.
func (m *MetadataStructure) Attributes(object ObjectType) []*Attribute {
	return slices.Clone(m.attributes[object])
}

// Attribute returns one attribute of an object type.
func (m *MetadataStructure) Attribute(object ObjectType, id string) (*Attribute, bool) {
	for _, a := range m.attributes[object] {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// AddAttribute appends a copy of attr to an object type.
func (m *MetadataStructure) AddAttribute(object ObjectType, attr *Attribute) error {
	if _, err := ParseObjectType(string(object)); err != nil {
		return err
	}
	if attr == nil {
		return corpuserr.Validation("attribute", "nil attribute")
	}
	if err := ValidateAttributeID(attr.ID); err != nil {
		return err
	}
	if slices.ContainsFunc(m.attributes[object], func(a *Attribute) bool { return SameID(a.ID, attr.ID) }) {
		return corpuserr.SchemaConflict("attribute "+quote(attr.ID), "already exists on %s", object)
	}
	if m.attributes == nil {
		m.attributes = map[ObjectType][]*Attribute{}
	}
	copied := *attr
	m.attributes[object] = append(m.attributes[object], &copied)
	return nil
}

// RemoveAttribute drops an attribute of an object type.
func (m *MetadataStructure) RemoveAttribute(object ObjectType, id string) error {
	list := m.attributes[object]
	i := slices.IndexFunc(list, func(a *Attribute) bool { return a.ID == id })
	if i < 0 {
		return corpuserr.NotFound("attribute", string(object)+"."+id)
	}
	m.attributes[object] = slices.Delete(list, i, i+1)
	return nil
}

// Clone returns a deep copy.
func (m *MetadataStructure) Clone() *MetadataStructure {
	out := NewMetadataStructure()
	for object, list := range m.attributes {
		copied := make([]*Attribute, len(list))
		for i, a := range list {
			attr := *a
			copied[i] = &attr
		}
		out.attributes[object] = copied
	}
	return out
}
