package modifiers_test

import (
	"testing"

	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/modifiers"
	"github.com/goliatone/go-formfuzz/pkg/modifiers/expr"
)

func leaf(name string, attrs map[string]string) *model.ViewNode {
	all := map[string]string{"name": name}
	for k, v := range attrs {
		all[k] = v
	}
	return &model.ViewNode{Tag: model.TagField, Attrs: all}
}

func TestResolveFallsBackToFieldMetadata(t *testing.T) {
	t.Parallel()

	got, err := modifiers.Resolve(expr.New(), leaf("name", nil), model.Field{Name: "name", Required: true, Readonly: true}, modifiers.Context{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Invisible || !got.Readonly || !got.Required {
		t.Fatalf("unexpected modifiers: %+v", got)
	}
	if got.Editable() {
		t.Fatalf("readonly field must not be editable")
	}
}

func TestResolveAttributesOverrideMetadata(t *testing.T) {
	t.Parallel()

	node := leaf("vat", map[string]string{
		"invisible": "not is_company",
		"readonly":  "0",
		"required":  "[('country_id', '!=', False)]",
	})
	ctx := modifiers.Context{Values: map[string]any{"is_company": true, "country_id": model.ID(4)}}

	got, err := modifiers.Resolve(expr.New(), node, model.Field{Name: "vat", Readonly: true}, ctx)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := modifiers.Modifiers{Invisible: false, Readonly: false, Required: true}
	if got != want {
		t.Fatalf("Resolve = %+v, want %+v", got, want)
	}
	if !got.Editable() {
		t.Fatalf("expected editable")
	}
}

func TestResolveDomainUsesParentBindings(t *testing.T) {
	t.Parallel()

	node := leaf("discount", map[string]string{"invisible": "[('partner_id', '=', parent.partner_id)]"})
	ctx := modifiers.Context{
		Values: map[string]any{"partner_id": model.ID(9)},
		Parent: map[string]any{"partner_id": model.ID(9)},
	}
	got, err := modifiers.Resolve(expr.New(), node, model.Field{}, ctx)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !got.Invisible {
		t.Fatalf("expected invisible when partner matches parent")
	}
}

func TestResolveRequiresEvaluator(t *testing.T) {
	t.Parallel()

	if _, err := modifiers.Resolve(nil, leaf("x", nil), model.Field{}, modifiers.Context{}); err == nil {
		t.Fatalf("expected error without evaluator")
	}
}

func TestResolveWrapsEvaluatorErrors(t *testing.T) {
	t.Parallel()

	failing := modifiers.EvaluatorFunc(func(string, string, modifiers.Context) (bool, error) {
		return false, errBoom
	})
	_, err := modifiers.Resolve(failing, leaf("x", map[string]string{"invisible": "whatever"}), model.Field{}, modifiers.Context{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

var errBoom = boomError("boom")

type boomError string

func (e boomError) Error() string { return string(e) }
