package model_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

func TestRawUnwrapsEveryVariant(t *testing.T) {
	t.Parallel()

	nested := model.NewNested(map[string]model.GeneratedValue{
		"code":    model.NewSingle(3),
		"tags":    model.NewMulti([]model.ID{1, 2}),
		"comment": model.NewScalar("hello"),
	})

	got := model.Raw(nested)
	want := map[string]any{
		"code":    model.ID(3),
		"tags":    []model.ID{1, 2},
		"comment": "hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("raw mismatch (-want +got):\n%s", diff)
	}

	if raw := model.Raw(model.Unavailable); raw != nil {
		t.Fatalf("expected nil raw value for Unavailable, got %v", raw)
	}
}

func TestIsUnavailable(t *testing.T) {
	t.Parallel()

	if !model.IsUnavailable(model.Unavailable) {
		t.Fatalf("expected sentinel to be unavailable")
	}
	if !model.IsUnavailable(nil) {
		t.Fatalf("expected nil to be unavailable")
	}
	if model.IsUnavailable(model.NewScalar(false)) {
		t.Fatalf("a false scalar is a real value")
	}
}

func TestNewMultiCopiesIDs(t *testing.T) {
	t.Parallel()

	ids := []model.ID{4, 5}
	value := model.NewMulti(ids).(model.MultiRelation)
	ids[0] = 99
	if value.IDs[0] != 4 {
		t.Fatalf("expected ids to be copied, got %v", value.IDs)
	}
	if value.Op != model.OpAddMany {
		t.Fatalf("expected ADD_MANY op, got %s", value.Op)
	}
}

func TestParseFieldType(t *testing.T) {
	t.Parallel()

	ft, err := model.ParseFieldType(" Many2One ")
	if err != nil {
		t.Fatalf("ParseFieldType returned error: %v", err)
	}
	if ft != model.FieldTypeMany2One || !ft.Relational() {
		t.Fatalf("unexpected field type %q", ft)
	}
	if _, err := model.ParseFieldType("binary"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestFieldErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := model.NewFieldError("email", model.ErrApplyRejected)
	if !errors.Is(err, model.ErrApplyRejected) {
		t.Fatalf("expected errors.Is to match ErrApplyRejected")
	}
	if got := model.FieldOf(err); got != "email" {
		t.Fatalf("expected field name email, got %q", got)
	}
}

func TestDescribePrefersLeafWidget(t *testing.T) {
	t.Parallel()

	leaf := &model.ViewNode{Tag: model.TagField, Attrs: map[string]string{"name": "email", "widget": " email "}}
	desc := model.Describe(model.Field{Type: model.FieldTypeChar, Required: true}, leaf)

	want := model.FieldDescriptor{Name: "email", Type: model.FieldTypeChar, Widget: "email", Required: true}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}
