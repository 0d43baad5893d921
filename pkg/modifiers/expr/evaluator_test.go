package expr

import (
	"testing"

	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/modifiers"
)

func TestEvaluatorLiteralFlags(t *testing.T) {
	t.Parallel()

	eval := New()
	cases := map[string]bool{
		"1":     true,
		"0":     false,
		"True":  true,
		"False": false,
		"None":  false,
		"":      false,
	}
	for rule, want := range cases {
		got, err := eval.Eval("name", rule, modifiers.Context{})
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", rule, err)
		}
		if got != want {
			t.Fatalf("Eval(%q) = %v, want %v", rule, got, want)
		}
	}
}

func TestEvaluatorBooleanComparison(t *testing.T) {
	t.Parallel()

	eval := New()

	ok, err := eval.Eval("vat", "is_company == True", modifiers.Context{
		Values: map[string]any{"is_company": true},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true")
	}

	ok, err = eval.Eval("vat", "is_company == true", modifiers.Context{
		Values: map[string]any{"is_company": "true"},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for string true")
	}
}

func TestEvaluatorTruthyAndNot(t *testing.T) {
	t.Parallel()

	eval := New()

	ok, err := eval.Eval("vat", "not is_company", modifiers.Context{
		Values: map[string]any{"is_company": false},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for not false")
	}

	ok, err = eval.Eval("vat", "!partner_id", modifiers.Context{
		Values: map[string]any{"partner_id": model.ID(7)},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected false for a set many2one")
	}
}

func TestEvaluatorComparisons(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := modifiers.Context{Values: map[string]any{
		"state":  "done",
		"amount": 12.5,
		"count":  int64(3),
	}}

	cases := []struct {
		rule string
		want bool
	}{
		{"state == 'done'", true},
		{"state != 'done'", false},
		{"state <> 'draft'", true},
		{"amount > 10", true},
		{"amount <= 12.5", true},
		{"count < 3", false},
		{"count >= 3", true},
		{"state == 'done' and amount > 100", false},
		{"state == 'draft' or amount > 10", true},
		{"(state == 'draft' or state == 'done') && count == 3", true},
		{"missing == None", true},
		{"state != None", true},
	}
	for _, tc := range cases {
		got, err := eval.Eval("x", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestEvaluatorMembership(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := modifiers.Context{Values: map[string]any{"state": "sent"}}

	ok, err := eval.Eval("x", "state in ('draft', 'sent')", ctx)
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected state in list")
	}

	ok, err = eval.Eval("x", "state not in ['draft', 'sent']", ctx)
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected not in to be false")
	}
}

func TestEvaluatorParentLookup(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := modifiers.Context{
		Values: map[string]any{"product_id": model.ID(3)},
		Parent: map[string]any{"state": "draft"},
	}

	ok, err := eval.Eval("price_unit", "parent.state != 'draft'", ctx)
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected false for draft parent")
	}
}

func TestEvaluatorRejectsInvalidSyntax(t *testing.T) {
	t.Parallel()

	eval := New()
	for _, rule := range []string{"state = 'done'", "a & b", "(a", "state in 'done'", "'open"} {
		if _, err := eval.Eval("x", rule, modifiers.Context{}); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestEvaluatorEdgeSemantics(t *testing.T) {
	t.Parallel()

	eval := New()
	ctx := modifiers.Context{
		Values: map[string]any{"partner": map[string]any{"country": "BE"}},
		Parent: map[string]any{"order": map[string]any{"state": "sale"}},
	}
	cases := []struct {
		rule string
		want bool
	}{
		{"partner.country == 'BE'", true},
		{"parent.order.state in ('sale', 'done')", true},
		{"qty == 0", true},
		{"qty in (0, 1)", true},
		{"missing != False", false},
	}
	for _, tc := range cases {
		got, err := eval.Eval("x", tc.rule, ctx)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}

	for _, rule := range []string{"active > True", "partner_id >= None", "state == other_field"} {
		if _, err := eval.Eval("x", rule, ctx); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}
