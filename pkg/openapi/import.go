package openapi

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formfuzz/pkg/backend/memory"
	"github.com/goliatone/go-formfuzz/pkg/model"
)

// textThreshold is the maxLength above which strings become text fields.
const textThreshold = 255

// Import loads the OpenAPI document in data and converts the request body of
// operationID into host models. The first model is the form's model; nested
// models follow for array-of-object properties, which become one2many fields.
func Import(ctx context.Context, data []byte, operationID string) ([]memory.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	operationID = strings.TrimSpace(operationID)
	if operationID == "" {
		return nil, errors.New("openapi: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	op, err := findOperation(doc, operationID)
	if err != nil {
		return nil, err
	}
	schema := requestSchema(op.RequestBody)
	if schema == nil || schema.Value == nil || len(schema.Value.Properties) == 0 {
		return nil, fmt.Errorf("openapi: operation %q has no object request body", operationID)
	}

	name := modelName(schema.Ref, operationID)
	var out []memory.Model
	root, _ := buildModel(name, schema.Value, &out)
	return append([]memory.Model{root}, out...), nil
}

// Operations lists the operation ids of a document in lexical order.
func Operations(ctx context.Context, data []byte) ([]string, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	var ids []string
	if doc.Paths != nil {
		for _, item := range doc.Paths.Map() {
			for _, op := range item.Operations() {
				if op != nil && op.OperationID != "" {
					ids = append(ids, op.OperationID)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func findOperation(doc *openapi3.T, operationID string) (*openapi3.Operation, error) {
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op, nil
			}
		}
	}
	return nil, fmt.Errorf("openapi: operation %q not found", operationID)
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	for _, mt := range content {
		if mt != nil {
			return mt.Schema
		}
	}
	return nil
}

// modelName derives a dotted model name from a component reference such as
// #/components/schemas/PartnerCreate, falling back to the operation id.
func modelName(ref, fallback string) string {
	if ref != "" {
		if idx := strings.LastIndex(ref, "/"); idx >= 0 {
			ref = ref[idx+1:]
		}
		if ref != "" {
			return dotted(ref)
		}
	}
	return dotted(fallback)
}

func dotted(raw string) string {
	var sb strings.Builder
	for i, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteRune(r + ('a' - 'A'))
		case r == '_' || r == '-' || r == ' ':
			sb.WriteByte('.')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), ".")
}

type leaf struct {
	name   string
	widget string
	inline []leaf
}

// buildModel converts an object schema into a model and returns the view
// leaves it rendered, so callers can inline them as a nested tree.
func buildModel(name string, schema *openapi3.Schema, nested *[]memory.Model) (memory.Model, []leaf) {
	m := memory.Model{
		Name:   name,
		Fields: make(map[string]model.Field, len(schema.Properties)),
	}
	required := make(map[string]struct{}, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = struct{}{}
	}

	names := make([]string, 0, len(schema.Properties))
	for prop := range schema.Properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	var leaves []leaf
	for _, prop := range names {
		ref := schema.Properties[prop]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, widget, ok := fieldFor(prop, ref.Value)
		if !ok {
			continue
		}
		_, field.Required = required[prop]
		field.Readonly = ref.Value.ReadOnly
		l := leaf{name: prop, widget: widget}

		if field.Type == model.FieldTypeOne2Many && field.Relation == "" {
			items := ref.Value.Items.Value
			field.Relation = name + "." + dotted(prop)
			sub, subLeaves := buildModel(field.Relation, items, nested)
			*nested = append(*nested, sub)
			l.inline = subLeaves
		}
		if ref.Value.Default != nil {
			if m.Defaults == nil {
				m.Defaults = make(map[string]any)
			}
			m.Defaults[prop] = ref.Value.Default
		}
		m.Fields[prop] = field
		leaves = append(leaves, l)
	}

	m.Views = map[string]string{memory.DefaultView: renderForm(leaves)}
	return m, leaves
}

// fieldFor maps one property schema onto field metadata and an optional
// widget. Properties with no sensible mapping are dropped.
func fieldFor(name string, s *openapi3.Schema) (model.Field, string, bool) {
	field := model.Field{Name: name, String: s.Title}

	if rel := relationship(s.Extensions); rel.kind != "" {
		switch rel.kind {
		case "belongsto", "hasone":
			field.Type = model.FieldTypeMany2One
		case "hasmany", "manytomany", "belongstomany":
			field.Type = model.FieldTypeMany2Many
		default:
			return model.Field{}, "", false
		}
		field.Relation = modelName(rel.target, rel.target)
		return field, "", field.Relation != ""
	}

	if len(s.Enum) > 0 {
		field.Type = model.FieldTypeSelection
		field.Selection = append([]model.Scalar(nil), s.Enum...)
		return field, "", true
	}

	switch schemaType(s.Type) {
	case openapi3.TypeString:
		switch strings.ToLower(s.Format) {
		case "email":
			field.Type = model.FieldTypeChar
			return field, "email", true
		case "uri", "url":
			field.Type = model.FieldTypeChar
			return field, "url", true
		case "date":
			field.Type = model.FieldTypeDate
		case "date-time":
			field.Type = model.FieldTypeDatetime
		default:
			field.Type = model.FieldTypeChar
			if s.MaxLength != nil && *s.MaxLength > textThreshold {
				field.Type = model.FieldTypeText
			}
		}
	case openapi3.TypeInteger:
		field.Type = model.FieldTypeInteger
	case openapi3.TypeNumber:
		field.Type = model.FieldTypeFloat
	case openapi3.TypeBoolean:
		field.Type = model.FieldTypeBoolean
	case openapi3.TypeArray:
		if s.Items == nil || s.Items.Value == nil || len(s.Items.Value.Properties) == 0 {
			return model.Field{}, "", false
		}
		field.Type = model.FieldTypeOne2Many
	default:
		return model.Field{}, "", false
	}
	return field, "", true
}

func schemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func renderForm(leaves []leaf) string {
	var sb strings.Builder
	sb.WriteString("<form><group>")
	writeLeaves(&sb, leaves)
	sb.WriteString("</group></form>")
	return sb.String()
}

func writeLeaves(sb *strings.Builder, leaves []leaf) {
	for _, l := range leaves {
		sb.WriteString(`<field name="`)
		_ = xml.EscapeText(sb, []byte(l.name))
		sb.WriteString(`"`)
		if l.widget != "" {
			sb.WriteString(` widget="`)
			_ = xml.EscapeText(sb, []byte(l.widget))
			sb.WriteString(`"`)
		}
		if len(l.inline) == 0 {
			sb.WriteString("/>")
			continue
		}
		sb.WriteString("><tree>")
		writeLeaves(sb, l.inline)
		sb.WriteString("</tree></field>")
	}
}
