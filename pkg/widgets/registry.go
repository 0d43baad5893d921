package widgets

import (
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Widget identifiers that override a field's type when picking a generator.
const (
	WidgetPhone = "phone"
	WidgetEmail = "email"
	WidgetURL   = "url"
	WidgetHTML  = "html"
)

// aliases maps the widget names a host may declare onto the canonical
// identifiers above. The table is closed: unknown widgets never override the
// field type.
var aliases = map[string]string{
	"phone":       WidgetPhone,
	"email":       WidgetEmail,
	"url":         WidgetURL,
	"html":        WidgetHTML,
	"html_frame":  WidgetHTML,
	"mail":        WidgetEmail,
	"website":     WidgetURL,
	"phone_field": WidgetPhone,
}

// Canonical returns the canonical widget for a declared widget name.
func Canonical(widget string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(widget))
	if key == "" {
		return "", false
	}
	canonical, ok := aliases[key]
	return canonical, ok
}

// Resolve returns the overriding widget for a descriptor. Widgets only apply
// to textual fields; a phone widget on a many2one, for example, is ignored so
// the generated value still matches the field type.
func Resolve(desc model.FieldDescriptor) (string, bool) {
	widget, ok := Canonical(desc.Widget)
	if !ok {
		return "", false
	}
	switch desc.Type {
	case model.FieldTypeChar, model.FieldTypeText, model.FieldTypeHTML, "":
		return widget, true
	default:
		return "", false
	}
}
