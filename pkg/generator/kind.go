package generator

import (
	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/widgets"
)

// Kind selects the generation rule for a descriptor.
type Kind int

const (
	KindUnsupported Kind = iota
	KindChar
	KindText
	KindHTML
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindDatetime
	KindSelection
	KindManyToOne
	KindManyToMany
	KindOneToMany
	KindPhone
	KindEmail
	KindURL
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindChar:        "char",
	KindText:        "text",
	KindHTML:        "html",
	KindInteger:     "integer",
	KindFloat:       "float",
	KindBoolean:     "boolean",
	KindDate:        "date",
	KindDatetime:    "datetime",
	KindSelection:   "selection",
	KindManyToOne:   "many2one",
	KindManyToMany:  "many2many",
	KindOneToMany:   "one2many",
	KindPhone:       "phone",
	KindEmail:       "email",
	KindURL:         "url",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnsupported]
	}
	return kindNames[k]
}

// KindFor picks the rule for desc. A recognised widget on a textual field
// takes precedence over the field type.
func KindFor(desc model.FieldDescriptor) Kind {
	if widget, ok := widgets.Resolve(desc); ok {
		switch widget {
		case widgets.WidgetPhone:
			return KindPhone
		case widgets.WidgetEmail:
			return KindEmail
		case widgets.WidgetURL:
			return KindURL
		case widgets.WidgetHTML:
			return KindHTML
		}
	}
	switch desc.Type {
	case model.FieldTypeChar:
		return KindChar
	case model.FieldTypeText:
		return KindText
	case model.FieldTypeHTML:
		return KindHTML
	case model.FieldTypeInteger:
		return KindInteger
	case model.FieldTypeFloat, model.FieldTypeMonetary:
		return KindFloat
	case model.FieldTypeBoolean:
		return KindBoolean
	case model.FieldTypeDate:
		return KindDate
	case model.FieldTypeDatetime:
		return KindDatetime
	case model.FieldTypeSelection:
		return KindSelection
	case model.FieldTypeMany2One:
		return KindManyToOne
	case model.FieldTypeMany2Many:
		return KindManyToMany
	case model.FieldTypeOne2Many:
		return KindOneToMany
	default:
		return KindUnsupported
	}
}
