package model

import "sort"

// Op tags the write operation carried by relational values.
type Op string

const (
	OpAdd     Op = "ADD"
	OpAddMany Op = "ADD_MANY"
	OpCreate  Op = "CREATE"
)

// GeneratedValue is the closed union of values the generator can produce:
// Scalar, SingleRelation, MultiRelation, NestedCreate or Unavailable.
type GeneratedValue interface {
	generatedValue()
}

// ScalarValue holds a plain field value.
type ScalarValue struct {
	Value Scalar
}

// SingleRelation links one record (many2one).
type SingleRelation struct {
	Op Op
	ID ID
}

// MultiRelation links several records (many2many).
type MultiRelation struct {
	Op  Op
	IDs []ID
}

// NestedCreate creates one nested row (one2many).
type NestedCreate struct {
	Op   Op
	Data map[string]GeneratedValue
}

type unavailable struct{}

// Unavailable is returned when no valid value could be produced.
var Unavailable GeneratedValue = unavailable{}

func (ScalarValue) generatedValue()    {}
func (SingleRelation) generatedValue() {}
func (MultiRelation) generatedValue()  {}
func (NestedCreate) generatedValue()   {}
func (unavailable) generatedValue()    {}

// NewScalar wraps v as a generated scalar.
func NewScalar(v Scalar) GeneratedValue { return ScalarValue{Value: v} }

// NewSingle wraps id as a many2one ADD.
func NewSingle(id ID) GeneratedValue { return SingleRelation{Op: OpAdd, ID: id} }

// NewMulti wraps ids as a many2many ADD_MANY.
func NewMulti(ids []ID) GeneratedValue {
	return MultiRelation{Op: OpAddMany, IDs: append([]ID(nil), ids...)}
}

// NewNested wraps data as a one2many CREATE.
func NewNested(data map[string]GeneratedValue) GeneratedValue {
	return NestedCreate{Op: OpCreate, Data: data}
}

// IsUnavailable reports whether v is the Unavailable sentinel or nil.
func IsUnavailable(v GeneratedValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(unavailable)
	return ok
}

// Raw unwraps a value into its printable form: the scalar itself, the linked
// id, the id list, or a map of raw nested values. Unavailable yields nil.
func Raw(v GeneratedValue) any {
	switch typed := v.(type) {
	case ScalarValue:
		return typed.Value
	case SingleRelation:
		return typed.ID
	case MultiRelation:
		return append([]ID(nil), typed.IDs...)
	case NestedCreate:
		out := make(map[string]any, len(typed.Data))
		for name, sub := range typed.Data {
			out[name] = Raw(sub)
		}
		return out
	case unavailable, nil:
		return nil
	default:
		return nil
	}
}

// SortedNames returns the keys of a nested row in lexical order.
func (n NestedCreate) SortedNames() []string {
	names := make([]string, 0, len(n.Data))
	for name := range n.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
