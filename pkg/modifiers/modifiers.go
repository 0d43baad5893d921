// Package modifiers evaluates the per-occurrence conditions (invisible,
// readonly, required) a view attaches to a field leaf. A modifier is either a
// literal flag ("1", "True", "0"), a boolean expression over the record's
// current values ("state == 'done' and not is_company"), or a domain
// ("[('state', '=', 'done')]").
package modifiers

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/domain"
	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Modifier attribute names.
const (
	AttrInvisible = "invisible"
	AttrReadonly  = "readonly"
	AttrRequired  = "required"
)

// Evaluator decides whether a modifier rule holds for a field given the
// record's current values.
type Evaluator interface {
	Eval(fieldName, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the record being
// edited and Parent the enclosing record when the field belongs to a nested
// one2many row.
type Context struct {
	Values map[string]any
	Parent map[string]any
}

// Bindings flattens the context into the shape domain references expect.
func (c Context) Bindings() map[string]any {
	out := make(map[string]any, len(c.Values)+1)
	for k, v := range c.Values {
		out[k] = v
	}
	if c.Parent != nil {
		out["parent"] = c.Parent
	}
	return out
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldName, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldName, rule string, ctx Context) (bool, error) {
	return fn(fieldName, rule, ctx)
}

// Modifiers is the resolved state of one field occurrence.
type Modifiers struct {
	Invisible bool
	Readonly  bool
	Required  bool
}

// Editable reports whether the fuzzer may write the field.
func (m Modifiers) Editable() bool {
	return !m.Invisible && !m.Readonly
}

// Resolve evaluates the modifiers declared on leaf. Missing readonly and
// required attributes fall back to the field metadata.
func Resolve(eval Evaluator, leaf *model.ViewNode, field model.Field, ctx Context) (Modifiers, error) {
	if eval == nil {
		return Modifiers{}, fmt.Errorf("modifiers: evaluator is required")
	}
	var (
		out Modifiers
		err error
	)
	name := leaf.Name()
	if out.Invisible, err = evalAttr(eval, name, leaf.Attr(AttrInvisible), false, ctx); err != nil {
		return Modifiers{}, err
	}
	if out.Readonly, err = evalAttr(eval, name, leaf.Attr(AttrReadonly), field.Readonly, ctx); err != nil {
		return Modifiers{}, err
	}
	if out.Required, err = evalAttr(eval, name, leaf.Attr(AttrRequired), field.Required, ctx); err != nil {
		return Modifiers{}, err
	}
	return out, nil
}

func evalAttr(eval Evaluator, fieldName, rule string, fallback bool, ctx Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return fallback, nil
	}
	if strings.HasPrefix(rule, "[") {
		d, err := domain.Parse(rule)
		if err != nil {
			return false, fmt.Errorf("modifiers: field %q: %w", fieldName, err)
		}
		ok, err := d.Bind(ctx.Bindings()).Match(ctx.Values)
		if err != nil {
			return false, fmt.Errorf("modifiers: field %q: %w", fieldName, err)
		}
		return ok, nil
	}
	ok, err := eval.Eval(fieldName, rule, ctx)
	if err != nil {
		return false, fmt.Errorf("modifiers: field %q: %w", fieldName, err)
	}
	return ok, nil
}
