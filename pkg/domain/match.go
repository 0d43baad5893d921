package domain

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Match evaluates the domain against record. Consecutive top-level
// expressions are implicitly combined with '&'. References must have been
// bound beforehand; unbound references compare as nil.
func (d Domain) Match(record map[string]any) (bool, error) {
	if d.Empty() {
		return true, nil
	}
	var stack []bool
	pop := func() bool {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	for i := len(d.Items) - 1; i >= 0; i-- {
		item := d.Items[i]
		switch {
		case item.Term != nil:
			ok, err := item.Term.match(record)
			if err != nil {
				return false, err
			}
			stack = append(stack, ok)
		case item.Logic == Not:
			if len(stack) < 1 {
				return false, fmt.Errorf("domain: '!' is missing its operand")
			}
			stack = append(stack, !pop())
		case item.Logic == And, item.Logic == Or:
			if len(stack) < 2 {
				return false, fmt.Errorf("domain: %q needs two operands", item.Logic)
			}
			a, b := pop(), pop()
			if item.Logic == And {
				stack = append(stack, a && b)
			} else {
				stack = append(stack, a || b)
			}
		}
	}
	for _, v := range stack {
		if !v {
			return false, nil
		}
	}
	return true, nil
}

func (t *Term) match(record map[string]any) (bool, error) {
	value, _ := Lookup(record, t.Field)
	switch t.Operator {
	case OpEq:
		return equals(value, t.Value), nil
	case OpNeq:
		return !equals(value, t.Value), nil
	case OpIn:
		return in(value, t.Value), nil
	case OpNotIn:
		return !in(value, t.Value), nil
	case OpLt, OpLte, OpGt, OpGte:
		return compare(value, t.Value.Value, t.Operator)
	case OpLike, OpILike, OpNotLike, OpNotILike, OpEqLike, OpEqILike:
		ok, err := like(value, t.Value.Value, t.Operator)
		if err != nil {
			return false, err
		}
		if t.Operator == OpNotLike || t.Operator == OpNotILike {
			return !ok, nil
		}
		return ok, nil
	default:
		return false, fmt.Errorf("domain: unsupported operator %q", t.Operator)
	}
}

func equals(value any, op Operand) bool {
	if op.IsList {
		return in(value, op)
	}
	if list, ok := toList(value); ok {
		if isFalsy(op.Value) {
			return len(list) == 0
		}
		for _, elem := range list {
			if scalarEqual(elem, op.Value) {
				return true
			}
		}
		return false
	}
	if op.Value == nil || op.Value == false {
		return isFalsy(value)
	}
	return scalarEqual(value, op.Value)
}

func in(value any, op Operand) bool {
	candidates := op.List
	if !op.IsList {
		candidates = []Operand{op}
	}
	values, isList := toList(value)
	if !isList {
		values = []any{value}
	}
	for _, v := range values {
		for _, c := range candidates {
			if c.Value == nil || c.Value == false {
				if isFalsy(v) {
					return true
				}
				continue
			}
			if scalarEqual(v, c.Value) {
				return true
			}
		}
	}
	return false
}

func compare(value, operand any, op Operator) (bool, error) {
	if value == nil || operand == nil {
		return false, nil
	}
	if a, ok := toNumber(value); ok {
		b, ok := toNumber(operand)
		if !ok {
			return false, fmt.Errorf("domain: cannot compare %v with %v", value, operand)
		}
		return ordered(compareFloats(a, b), op), nil
	}
	a, aok := value.(string)
	b, bok := operand.(string)
	if !aok || !bok {
		return false, fmt.Errorf("domain: cannot compare %v with %v", value, operand)
	}
	return ordered(strings.Compare(a, b), op), nil
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func ordered(cmp int, op Operator) bool {
	switch op {
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	default:
		return false
	}
}

func like(value, operand any, op Operator) (bool, error) {
	pattern, ok := operand.(string)
	if !ok {
		pattern = fmt.Sprint(operand)
	}
	text := ""
	if value != nil && value != false {
		text = fmt.Sprint(value)
	}
	insensitive := op == OpILike || op == OpNotILike || op == OpEqILike
	if insensitive {
		text = strings.ToLower(text)
		pattern = strings.ToLower(pattern)
	}
	if op == OpEqLike || op == OpEqILike {
		re, err := sqlPattern(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(text), nil
	}
	return strings.Contains(text, pattern), nil
}

func sqlPattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("domain: invalid like pattern %q: %w", pattern, err)
	}
	return re, nil
}

func scalarEqual(a, b any) bool {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
		if s, ok := b.(string); ok {
			if y, err := strconv.ParseFloat(s, 64); err == nil {
				return x == y
			}
		}
		return false
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		return ok && x == y
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case model.ID:
		return v == 0
	}
	if list, ok := toList(value); ok {
		return len(list) == 0
	}
	return false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case model.ID:
		return float64(v), true
	default:
		return 0, false
	}
}

func toList(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return v, true
	case []model.ID:
		out := make([]any, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
