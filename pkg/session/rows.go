package session

import (
	"context"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/modifiers"
	"github.com/goliatone/go-formfuzz/pkg/walker"
)

// fillRows applies between one and maxRows nested rows to a one2many field.
// Required sub-field values used by earlier rows are excluded from later
// ones; the first row that cannot be built ends the loop.
func (r *run) fillRows(ctx context.Context, leaf *model.ViewNode, field model.Field, mods modifiers.Modifiers, parent map[string]any) error {
	name := field.Name
	count := r.generator.IntRange(1, r.maxRows)
	r.state.ResetRequired(name)
	defer r.state.DropRequired(name)

	desc := model.Describe(field, leaf)
	desc.Required = mods.Required
	for i := range count {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.phase(PhaseGenerate, "field", name, "row", i+1, "rows", count)
		value, required := r.buildRow(ctx, name, leaf.SubView, parent)
		if model.IsUnavailable(value) {
			if i == 0 {
				_, err := r.apply(ctx, name, value, mods.Required, desc)
				return err
			}
			r.logger.Debug("no more rows available", "field", name, "rows", i)
			return nil
		}
		applied, err := r.apply(ctx, name, value, mods.Required, desc)
		if err != nil {
			return err
		}
		if !applied {
			continue
		}
		nested := value.(model.NestedCreate)
		for _, sub := range required {
			if v, ok := nested.Data[sub]; ok {
				r.state.RememberRequired(name, sub, model.Raw(v))
			}
		}
		parent = r.values(ctx)
	}
	return nil
}

// buildRow generates one nested row sub-field by sub-field so that each
// sub-field's domain can reference the row so far and the parent record. It
// returns the row and the names of its required sub-fields.
func (r *run) buildRow(ctx context.Context, parentField string, sub *model.FormView, parent map[string]any) (model.GeneratedValue, []string) {
	if sub == nil || sub.Arch == nil {
		return model.Unavailable, nil
	}
	row := r.generator.NewRow()
	var required []string
	for leaf := range walker.Fields(sub.Arch) {
		name := leaf.Name()
		field, ok := sub.Field(name)
		if !ok || skipSubField(name, field) {
			continue
		}
		if field.Name == "" {
			field.Name = name
		}
		rowValues := row.Values()
		mods, err := modifiers.Resolve(r.evaluator, leaf, field, modifiers.Context{Values: rowValues, Parent: parent})
		if err != nil {
			r.logger.Warn("cannot evaluate modifiers", "field", parentField+"."+name, "error", err)
			continue
		}
		if !mods.Editable() {
			continue
		}

		desc := model.Describe(field, leaf)
		desc.Required = mods.Required
		if field.Type.Relational() {
			bindings := make(map[string]any, len(rowValues)+1)
			for k, v := range rowValues {
				bindings[k] = v
			}
			bindings["parent"] = parent
			desc.CandidateIDs = r.candidates(ctx, field, leaf, bindings)
		}

		var excluded []model.Scalar
		if desc.Required {
			excluded = r.state.RequiredUsed(parentField, name)
		}
		if row.Add(desc, excluded) && desc.Required {
			required = append(required, name)
		}
		if row.Failed() {
			break
		}
	}
	return row.Value(), required
}

func skipSubField(name string, field model.Field) bool {
	return field.Type == model.FieldTypeOne2Many ||
		field.Readonly ||
		strings.HasPrefix(name, "_") ||
		name == "id"
}
