package widgets

import (
	"testing"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	desc := model.FieldDescriptor{Type: model.FieldTypeChar, Widget: " Email "}

	if got, ok := Resolve(desc); !ok || got != WidgetEmail {
		t.Fatalf("expected email widget to win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_Aliases(t *testing.T) {
	cases := []struct {
		name   string
		desc   model.FieldDescriptor
		expect string
		ok     bool
	}{
		{
			name:   "phone",
			desc:   model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "phone"},
			expect: WidgetPhone,
			ok:     true,
		},
		{
			name:   "website alias",
			desc:   model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "website"},
			expect: WidgetURL,
			ok:     true,
		},
		{
			name:   "html on text",
			desc:   model.FieldDescriptor{Type: model.FieldTypeText, Widget: "html"},
			expect: WidgetHTML,
			ok:     true,
		},
		{
			name: "unknown widget",
			desc: model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "statusbar"},
		},
		{
			name: "widget on relational field",
			desc: model.FieldDescriptor{Type: model.FieldTypeMany2One, Widget: "email"},
		},
		{
			name: "no widget",
			desc: model.FieldDescriptor{Type: model.FieldTypeChar},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Resolve(tc.desc)
			if ok != tc.ok || got != tc.expect {
				t.Fatalf("Resolve(%+v) = %q, %v; want %q, %v", tc.desc, got, ok, tc.expect, tc.ok)
			}
		})
	}
}
