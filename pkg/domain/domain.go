// Package domain parses, binds and evaluates the filter expressions that
// restrict which related records a relational field may reference. A domain
// is a prefix-notation list of terms and logical operators:
//
//	['|', ('country_id', '=', parent.country_id), ('is_company', '=', True)]
//
// Operands may reference sibling values (country_id) or the parent record
// (parent.country_id); Bind substitutes them before Match evaluates the
// domain against a record.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Logic is a prefix logical operator.
type Logic string

const (
	And Logic = "&"
	Or  Logic = "|"
	Not Logic = "!"
)

// Operator is a term comparison operator.
type Operator string

const (
	OpEq       Operator = "="
	OpNeq      Operator = "!="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpIn       Operator = "in"
	OpNotIn    Operator = "not in"
	OpLike     Operator = "like"
	OpILike    Operator = "ilike"
	OpNotLike  Operator = "not like"
	OpNotILike Operator = "not ilike"
	OpEqLike   Operator = "=like"
	OpEqILike  Operator = "=ilike"
	opEqAlias  Operator = "=="
	opNeqAlias Operator = "<>"
)

func parseOperator(raw string) (Operator, error) {
	op := Operator(strings.ToLower(strings.Join(strings.Fields(raw), " ")))
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpIn, OpNotIn,
		OpLike, OpILike, OpNotLike, OpNotILike, OpEqLike, OpEqILike:
		return op, nil
	case opEqAlias:
		return OpEq, nil
	case opNeqAlias:
		return OpNeq, nil
	default:
		return "", fmt.Errorf("domain: unsupported operator %q", raw)
	}
}

// Operand is a term's right-hand side: a literal, a list of operands, or a
// reference to a bound value.
type Operand struct {
	Value  any
	Ref    string
	List   []Operand
	IsList bool
}

// Term compares one field of a record against an operand.
type Term struct {
	Field    string
	Operator Operator
	Value    Operand
}

// Item is either a Term or a Logic operator.
type Item struct {
	Logic Logic
	Term  *Term
}

// Domain is a parsed filter expression.
type Domain struct {
	Items []Item
}

// Empty reports whether the domain has no items and thus matches anything.
func (d Domain) Empty() bool {
	return len(d.Items) == 0
}

func (d Domain) validate() error {
	depth := 0
	for i := len(d.Items) - 1; i >= 0; i-- {
		item := d.Items[i]
		switch {
		case item.Term != nil:
			depth++
		case item.Logic == Not:
			if depth < 1 {
				return errors.New("domain: '!' is missing its operand")
			}
		case item.Logic == And || item.Logic == Or:
			if depth < 2 {
				return fmt.Errorf("domain: %q needs two operands", item.Logic)
			}
			depth--
		}
	}
	return nil
}

// References lists the distinct operand references in declaration order.
func (d Domain) References() []string {
	var refs []string
	seen := make(map[string]struct{})
	var visit func(op Operand)
	visit = func(op Operand) {
		if op.Ref != "" {
			if _, ok := seen[op.Ref]; !ok {
				seen[op.Ref] = struct{}{}
				refs = append(refs, op.Ref)
			}
		}
		for _, elem := range op.List {
			visit(elem)
		}
	}
	for _, item := range d.Items {
		if item.Term != nil {
			visit(item.Term.Value)
		}
	}
	return refs
}

// Bind returns a copy of the domain with every reference replaced by its
// value in bindings. Dotted references (parent.partner_id) are resolved
// through nested maps; missing references bind to nil, the same as an unset
// field.
func (d Domain) Bind(bindings map[string]any) Domain {
	out := Domain{Items: make([]Item, len(d.Items))}
	for i, item := range d.Items {
		if item.Term == nil {
			out.Items[i] = item
			continue
		}
		term := *item.Term
		term.Value = bindOperand(term.Value, bindings)
		out.Items[i] = Item{Term: &term}
	}
	return out
}

func bindOperand(op Operand, bindings map[string]any) Operand {
	if op.Ref != "" {
		value, _ := Lookup(bindings, op.Ref)
		if list, ok := toList(value); ok {
			elems := make([]Operand, len(list))
			for i, elem := range list {
				elems[i] = Operand{Value: elem}
			}
			return Operand{List: elems, IsList: true}
		}
		return Operand{Value: value}
	}
	if op.IsList {
		elems := make([]Operand, len(op.List))
		for i, elem := range op.List {
			elems[i] = bindOperand(elem, bindings)
		}
		return Operand{List: elems, IsList: true}
	}
	return op
}

// Lookup resolves key in values, preferring an exact match before walking
// dotted segments through nested maps.
func Lookup(values map[string]any, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if len(values) == 0 || key == "" {
		return nil, false
	}
	if v, ok := values[key]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(key, ".") {
		typed, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := typed[strings.TrimSpace(part)]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// String renders the domain back into its literal form.
func (d Domain) String() string {
	parts := make([]string, len(d.Items))
	for i, item := range d.Items {
		if item.Term == nil {
			parts[i] = quote(string(item.Logic))
			continue
		}
		parts[i] = fmt.Sprintf("(%s, %s, %s)", quote(item.Term.Field), quote(string(item.Term.Operator)), item.Term.Value.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (op Operand) String() string {
	if op.Ref != "" {
		return op.Ref
	}
	if op.IsList {
		parts := make([]string, len(op.List))
		for i, elem := range op.List {
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	switch v := op.Value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return quote(v)
	default:
		return fmt.Sprint(v)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
