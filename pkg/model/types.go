package model

import (
	"fmt"
	"strings"
)

// FieldType is the closed enumeration of field kinds a form host can report.
type FieldType string

const (
	FieldTypeChar      FieldType = "char"
	FieldTypeText      FieldType = "text"
	FieldTypeHTML      FieldType = "html"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeMonetary  FieldType = "monetary"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeDate      FieldType = "date"
	FieldTypeDatetime  FieldType = "datetime"
	FieldTypeSelection FieldType = "selection"
	FieldTypeMany2One  FieldType = "many2one"
	FieldTypeOne2Many  FieldType = "one2many"
	FieldTypeMany2Many FieldType = "many2many"
)

var knownFieldTypes = map[FieldType]struct{}{
	FieldTypeChar:      {},
	FieldTypeText:      {},
	FieldTypeHTML:      {},
	FieldTypeInteger:   {},
	FieldTypeFloat:     {},
	FieldTypeMonetary:  {},
	FieldTypeBoolean:   {},
	FieldTypeDate:      {},
	FieldTypeDatetime:  {},
	FieldTypeSelection: {},
	FieldTypeMany2One:  {},
	FieldTypeOne2Many:  {},
	FieldTypeMany2Many: {},
}

// ParseFieldType normalises raw into a FieldType, rejecting unknown kinds.
func ParseFieldType(raw string) (FieldType, error) {
	ft := FieldType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownFieldTypes[ft]; !ok {
		return "", fmt.Errorf("model: unknown field type %q", raw)
	}
	return ft, nil
}

// Relational reports whether values of the type reference records of another
// model.
func (t FieldType) Relational() bool {
	switch t {
	case FieldTypeMany2One, FieldTypeOne2Many, FieldTypeMany2Many:
		return true
	default:
		return false
	}
}

// ID identifies a persisted record.
type ID int64

// Scalar is a plain field value: string, bool, int64, float64 or ID.
type Scalar = any

// RecordHandle is an opaque reference to a live record owned by a form host.
type RecordHandle string

// Field is the host metadata for a single model field.
type Field struct {
	Name      string    `json:"name" yaml:"name"`
	Type      FieldType `json:"type" yaml:"type"`
	String    string    `json:"string,omitempty" yaml:"string,omitempty"`
	Relation  string    `json:"relation,omitempty" yaml:"relation,omitempty"`
	Required  bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Readonly  bool      `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Selection []Scalar  `json:"selection,omitempty" yaml:"selection,omitempty"`
}

// ViewNode is one element of a form arch. Leaves tagged "field" are the unit
// of work; SubView carries the nested view of one2many fields.
type ViewNode struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []*ViewNode       `json:"children,omitempty"`
	SubView  *FormView         `json:"subView,omitempty"`
}

// TagField marks view leaves that reference a model field.
const TagField = "field"

// IsField reports whether the node is a field leaf.
func (n *ViewNode) IsField() bool {
	return n != nil && n.Tag == TagField
}

// Attr returns the trimmed attribute value or "".
func (n *ViewNode) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return strings.TrimSpace(n.Attrs[name])
}

// Name returns the field name referenced by a field leaf.
func (n *ViewNode) Name() string {
	return n.Attr("name")
}

// FormView bundles a view arch with the metadata of the fields it may show.
type FormView struct {
	Model  string           `json:"model"`
	Arch   *ViewNode        `json:"arch"`
	Fields map[string]Field `json:"fields"`
}

// Field returns the metadata for name.
func (v *FormView) Field(name string) (Field, bool) {
	if v == nil || v.Fields == nil {
		return Field{}, false
	}
	f, ok := v.Fields[name]
	return f, ok
}

// FieldDescriptor is the generator input for one field occurrence. Widget,
// when recognised, overrides Type. CandidateIDs holds the domain-restricted
// ids of relational fields and Nested the resolved sub-fields of a one2many.
type FieldDescriptor struct {
	Name            string
	Type            FieldType
	Relation        string
	Widget          string
	Required        bool
	SelectionValues []Scalar
	CandidateIDs    []ID
	Nested          []FieldDescriptor
}

// Describe builds a descriptor from host metadata and the view leaf that
// shows the field. Candidate ids are left for the caller to resolve.
func Describe(field Field, leaf *ViewNode) FieldDescriptor {
	desc := FieldDescriptor{
		Name:     field.Name,
		Type:     field.Type,
		Relation: field.Relation,
		Required: field.Required,
	}
	if desc.Name == "" {
		desc.Name = leaf.Name()
	}
	if widget := leaf.Attr("widget"); widget != "" {
		desc.Widget = widget
	}
	if len(field.Selection) > 0 {
		desc.SelectionValues = append([]Scalar(nil), field.Selection...)
	}
	return desc
}
