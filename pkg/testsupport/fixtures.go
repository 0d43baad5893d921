package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfuzz/pkg/arch"
	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustView parses an XML arch and bundles it with field metadata. Testing
// helpers fail the test on error to keep scenario setup concise.
func MustView(t testing.TB, modelName, src string, fields ...model.Field) *model.FormView {
	t.Helper()

	root, err := arch.Parse(src)
	if err != nil {
		t.Fatalf("parse arch: %v", err)
	}
	view := &model.FormView{Model: modelName, Arch: root, Fields: make(map[string]model.Field, len(fields))}
	for _, field := range fields {
		view.Fields[field.Name] = field
	}
	return view
}

// AttachSubView sets the nested view of the one2many leaf named field.
func AttachSubView(t testing.TB, view *model.FormView, field string, sub *model.FormView) {
	t.Helper()

	var found bool
	var visit func(node *model.ViewNode)
	visit = func(node *model.ViewNode) {
		if node == nil || found {
			return
		}
		if node.IsField() && node.Name() == field {
			node.SubView = sub
			found = true
			return
		}
		for _, child := range node.Children {
			visit(child)
		}
	}
	visit(view.Arch)
	if !found {
		t.Fatalf("field %q not found in arch", field)
	}
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// CaptureOutput executes a render function that writes to an io.Writer and
// returns what it wrote.
func CaptureOutput(t testing.TB, render func(io.Writer) error) string {
	t.Helper()

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}
