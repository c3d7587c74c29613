package structure

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"annotcore/internal/corpuserr"
)

const (
	xmlStructure = "AnnotationStructure"
	xmlLevel     = "AnnotationStructureLevel"
	xmlAttribute = "AnnotationStructureAttribute"
)

// LoadXML reads a structure definition document:
//
//	<AnnotationStructure>
//	  <AnnotationStructureLevel id="tok" levelType="independentintervals" ...>
//	    <AnnotationStructureAttribute id="pos" datatype="varchar" datalength="16"/>
//	  </AnnotationStructureLevel>
//	</AnnotationStructure>
//
// Levels are added in document order, so parents must precede children.
func LoadXML(r io.Reader) (*AnnotationStructure, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, corpuserr.Validation("structure xml", "parse: %v", err)
	}
	root := xmlquery.FindOne(doc, "//"+xmlStructure)
	if root == nil {
		return nil, corpuserr.Validation("structure xml", "missing <%s> element", xmlStructure)
	}
	s := &AnnotationStructure{}
	for _, node := range xmlquery.Find(root, "./"+xmlLevel) {
		level, err := levelFromNode(node)
		if err != nil {
			return nil, err
		}
		if err := s.AddLevel(level); err != nil {
			return nil, fmt.Errorf("import level %q: %w", level.ID, err)
		}
	}
	return s, nil
}

func levelFromNode(node *xmlquery.Node) (*Level, error) {
	kind, err := ParseLevelKind(node.SelectAttr("levelType"))
	if err != nil {
		return nil, err
	}
	dt, err := dataTypeFromNode(node)
	if err != nil {
		return nil, err
	}
	level := &Level{
		ID:            strings.TrimSpace(node.SelectAttr("id")),
		Kind:          kind,
		ParentLevelID: strings.TrimSpace(node.SelectAttr("parentLevelID")),
		Name:          node.SelectAttr("name"),
		Description:   node.SelectAttr("description"),
		DataType:      dt,
		Indexed:       parseXMLBool(node.SelectAttr("indexed")),
		NameValueList: node.SelectAttr("nameValueList"),
	}
	for _, child := range xmlquery.Find(node, "./"+xmlAttribute) {
		adt, err := dataTypeFromNode(child)
		if err != nil {
			return nil, err
		}
		level.Attributes = append(level.Attributes, &Attribute{
			ID:                     strings.TrimSpace(child.SelectAttr("id")),
			Name:                   child.SelectAttr("name"),
			Description:            child.SelectAttr("description"),
			DataType:               adt,
			Indexed:                parseXMLBool(child.SelectAttr("indexed")),
			NameValueList:          child.SelectAttr("nameValueList"),
			StatLevelOfMeasurement: child.SelectAttr("statLevelOfMeasurement"),
		})
	}
	return level, nil
}

func dataTypeFromNode(node *xmlquery.Node) (DataType, error) {
	precision := 0
	if raw := strings.TrimSpace(node.SelectAttr("datalength")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return DataType{}, corpuserr.Validation("structure xml", "invalid datalength %q", raw)
		}
		precision = n
	}
	return ParseDataType(node.SelectAttr("datatype"), precision)
}

func parseXMLBool(value string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(value))
	return b
}

// WriteXML writes s in the format read by LoadXML.
func WriteXML(w io.Writer, s *AnnotationStructure) error {
	root := &xmlquery.Node{Type: xmlquery.ElementNode, Data: xmlStructure}
	for _, l := range s.levels {
		ln := &xmlquery.Node{Type: xmlquery.ElementNode, Data: xmlLevel}
		xmlquery.AddAttr(ln, "id", l.ID)
		xmlquery.AddAttr(ln, "levelType", string(l.Kind))
		xmlquery.AddAttr(ln, "parentLevelID", l.ParentLevelID)
		xmlquery.AddAttr(ln, "name", l.Name)
		xmlquery.AddAttr(ln, "description", l.Description)
		xmlquery.AddAttr(ln, "datatype", string(l.DataType.Base))
		xmlquery.AddAttr(ln, "datalength", strconv.Itoa(l.DataType.Precision))
		xmlquery.AddAttr(ln, "indexed", strconv.FormatBool(l.Indexed))
		xmlquery.AddAttr(ln, "nameValueList", l.NameValueList)
		for _, a := range l.Attributes {
			an := &xmlquery.Node{Type: xmlquery.ElementNode, Data: xmlAttribute}
			xmlquery.AddAttr(an, "id", a.ID)
			xmlquery.AddAttr(an, "name", a.Name)
			xmlquery.AddAttr(an, "description", a.Description)
			xmlquery.AddAttr(an, "datatype", string(a.DataType.Base))
			xmlquery.AddAttr(an, "datalength", strconv.Itoa(a.DataType.Precision))
			xmlquery.AddAttr(an, "indexed", strconv.FormatBool(a.Indexed))
			xmlquery.AddAttr(an, "nameValueList", a.NameValueList)
			xmlquery.AddAttr(an, "statLevelOfMeasurement", a.StatLevelOfMeasurement)
			xmlquery.AddChild(ln, an)
		}
		xmlquery.AddChild(root, ln)
	}
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return corpuserr.IO("write structure xml", err)
	}
	if _, err := io.WriteString(w, root.OutputXML(true)+"\n"); err != nil {
		return corpuserr.IO("write structure xml", err)
	}
	return nil
}
