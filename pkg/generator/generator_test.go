package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func scalarOf(t fataler, v model.GeneratedValue) any {
	t.Helper()
	s, ok := v.(model.ScalarValue)
	if !ok {
		t.Fatalf("expected ScalarValue, got %T", v)
	}
	return s.Value
}

func TestKindForWidgetPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc model.FieldDescriptor
		want Kind
	}{
		{model.FieldDescriptor{Type: model.FieldTypeChar}, KindChar},
		{model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "phone"}, KindPhone},
		{model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "email"}, KindEmail},
		{model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "url"}, KindURL},
		{model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "statusbar"}, KindChar},
		{model.FieldDescriptor{Type: model.FieldTypeMany2One, Widget: "phone"}, KindManyToOne},
		{model.FieldDescriptor{Type: model.FieldTypeMonetary}, KindFloat},
		{model.FieldDescriptor{Type: "binary"}, KindUnsupported},
	}
	for _, tc := range cases {
		if got := KindFor(tc.desc); got != tc.want {
			t.Fatalf("KindFor(%+v) = %s, want %s", tc.desc, got, tc.want)
		}
	}
}

func TestGenerateUnsupportedIsUnavailable(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(1))
	if v := g.Generate(model.FieldDescriptor{Name: "image", Type: "binary"}, nil); !model.IsUnavailable(v) {
		t.Fatalf("expected Unavailable, got %#v", v)
	}
}

func TestGenerateStringBoundsProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		g := New(WithSeed(rapid.Int64().Draw(rt, "seed")))

		char := scalarOf(rt, g.Generate(model.FieldDescriptor{Type: model.FieldTypeChar}, nil)).(string)
		if n := len(char); n < 4 || n > 40 {
			rt.Fatalf("char length %d out of [4,40]", n)
		}
		text := scalarOf(rt, g.Generate(model.FieldDescriptor{Type: model.FieldTypeText}, nil)).(string)
		if n := len(text); n < 4 || n > 400 {
			rt.Fatalf("text length %d out of [4,400]", n)
		}
	})
}

func TestGenerateNumberBoundsProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		g := New(WithSeed(rapid.Int64().Draw(rt, "seed")))

		i := scalarOf(rt, g.Generate(model.FieldDescriptor{Type: model.FieldTypeInteger}, nil)).(int64)
		if i < 4 || i > 999999 {
			rt.Fatalf("integer %d out of range", i)
		}
		f := scalarOf(rt, g.Generate(model.FieldDescriptor{Type: model.FieldTypeMonetary}, nil)).(float64)
		if f < 4 || f > 999999 {
			rt.Fatalf("monetary %f out of range", f)
		}
	})
}

func TestGenerateManyToOneHonoursExclusionProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfNDistinct(rapid.Int64Range(1, 1000), 1, 20, rapid.ID[int64]).Draw(rt, "ids")
		candidates := make([]model.ID, len(ids))
		for i, id := range ids {
			candidates[i] = model.ID(id)
		}
		cut := rapid.IntRange(0, len(candidates)).Draw(rt, "cut")
		excluded := make([]model.Scalar, 0, cut)
		for _, id := range candidates[:cut] {
			excluded = append(excluded, id)
		}

		g := New(WithSeed(rapid.Int64().Draw(rt, "seed")))
		v := g.Generate(model.FieldDescriptor{Type: model.FieldTypeMany2One, CandidateIDs: candidates}, excluded)

		if cut == len(candidates) {
			if !model.IsUnavailable(v) {
				rt.Fatalf("expected Unavailable when every candidate is excluded, got %#v", v)
			}
			return
		}
		single, ok := v.(model.SingleRelation)
		if !ok {
			rt.Fatalf("expected SingleRelation, got %#v", v)
		}
		if single.Op != model.OpAdd {
			rt.Fatalf("unexpected op %q", single.Op)
		}
		for _, ex := range candidates[:cut] {
			if single.ID == ex {
				rt.Fatalf("picked excluded id %d", ex)
			}
		}
	})
}

func TestGenerateManyToManyStrictSubsetProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(rt, "n")
		candidates := make([]model.ID, n)
		for i := range candidates {
			candidates[i] = model.ID(i + 1)
		}
		g := New(WithSeed(rapid.Int64().Draw(rt, "seed")))
		v := g.Generate(model.FieldDescriptor{Type: model.FieldTypeMany2Many, CandidateIDs: candidates}, nil)
		if model.IsUnavailable(v) {
			return
		}
		multi, ok := v.(model.MultiRelation)
		if !ok {
			rt.Fatalf("expected MultiRelation, got %#v", v)
		}
		if len(multi.IDs) < 1 || len(multi.IDs) > n-1 {
			rt.Fatalf("subset size %d out of [1,%d]", len(multi.IDs), n-1)
		}
		seen := make(map[model.ID]struct{})
		for _, id := range multi.IDs {
			if id < 1 || int(id) > n {
				rt.Fatalf("id %d not a candidate", id)
			}
			if _, dup := seen[id]; dup {
				rt.Fatalf("duplicate id %d", id)
			}
			seen[id] = struct{}{}
		}
	})
}

func TestGenerateManyToManySingleCandidateIsUnavailable(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(7))
	for range 20 {
		v := g.Generate(model.FieldDescriptor{Type: model.FieldTypeMany2Many, CandidateIDs: []model.ID{5}}, nil)
		if !model.IsUnavailable(v) {
			t.Fatalf("expected Unavailable for a single candidate, got %#v", v)
		}
	}
}

func TestGenerateEmptyCandidatesIsUnavailable(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(3))
	for _, ft := range []model.FieldType{model.FieldTypeMany2One, model.FieldTypeMany2Many, model.FieldTypeSelection} {
		if v := g.Generate(model.FieldDescriptor{Name: "country_id", Type: ft}, nil); !model.IsUnavailable(v) {
			t.Fatalf("%s: expected Unavailable, got %#v", ft, v)
		}
	}
}

func TestGenerateSelectionPicksAllowedValue(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(11))
	desc := model.FieldDescriptor{Type: model.FieldTypeSelection, SelectionValues: []model.Scalar{"person", "company"}}
	for range 50 {
		v := scalarOf(t, g.Generate(desc, []model.Scalar{"person"}))
		if v != "company" {
			t.Fatalf("expected company, got %v", v)
		}
	}
}

func TestGenerateDatesWithinRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(WithSeed(5), WithClock(func() time.Time { return now }))
	low := time.UnixMilli(now.UnixMilli() / 2).UTC()

	for range 50 {
		raw := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeDatetime}, nil)).(string)
		at, err := time.Parse(DatetimeLayout, raw)
		if err != nil {
			t.Fatalf("unparsable datetime %q: %v", raw, err)
		}
		if at.Before(low.Truncate(time.Second)) || at.After(now) {
			t.Fatalf("datetime %s outside [%s, %s]", at, low, now)
		}
		day := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeDate}, nil)).(string)
		if _, err := time.Parse(DateLayout, day); err != nil {
			t.Fatalf("unparsable date %q: %v", day, err)
		}
	}
}

func TestGenerateUsesDateFormatter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(
		WithSeed(9),
		WithClock(func() time.Time { return now }),
		WithDateFormatter(LayoutFormatter{Date: "02/01/2006", Datetime: time.RFC3339}),
	)

	day := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeDate}, nil)).(string)
	if _, err := time.Parse("02/01/2006", day); err != nil {
		t.Fatalf("date %q not in custom layout: %v", day, err)
	}
	stamp := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeDatetime}, nil)).(string)
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("datetime %q not in custom layout: %v", stamp, err)
	}
}

func TestGenerateWidgetFormats(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(9))

	phone := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "phone"}, nil)).(string)
	if len(phone) != 9 || strings.Trim(phone, "0123456789") != "" {
		t.Fatalf("phone %q is not 9 digits", phone)
	}
	email := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "email"}, nil)).(string)
	if at := strings.Index(email, "@"); at < 4 || !strings.Contains(email[at:], ".") {
		t.Fatalf("malformed email %q", email)
	}
	url := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeChar, Widget: "url"}, nil)).(string)
	if !strings.HasPrefix(url, "https://") {
		t.Fatalf("malformed url %q", url)
	}
	html := scalarOf(t, g.Generate(model.FieldDescriptor{Type: model.FieldTypeHTML}, nil)).(string)
	if !strings.HasPrefix(html, "<p>") && !strings.HasPrefix(html, "<ul>") {
		t.Fatalf("unexpected html %q", html)
	}
}

func TestGenerateSeedIsReproducible(t *testing.T) {
	t.Parallel()

	desc := model.FieldDescriptor{Type: model.FieldTypeChar}
	a := New(WithSeed(42)).Generate(desc, nil)
	b := New(WithSeed(42)).Generate(desc, nil)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("seeded generators diverged (-a +b):\n%s", diff)
	}
}

func TestGenerateOneToManyFromNested(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(2))
	desc := model.FieldDescriptor{
		Name: "child_ids",
		Type: model.FieldTypeOne2Many,
		Nested: []model.FieldDescriptor{
			{Name: "name", Type: model.FieldTypeChar, Required: true},
			{Name: "country_id", Type: model.FieldTypeMany2One},
		},
	}
	v := g.Generate(desc, nil)
	nested, ok := v.(model.NestedCreate)
	if !ok {
		t.Fatalf("expected NestedCreate, got %#v", v)
	}
	if nested.Op != model.OpCreate {
		t.Fatalf("unexpected op %q", nested.Op)
	}
	if diff := cmp.Diff([]string{"name"}, nested.SortedNames()); diff != "" {
		t.Fatalf("row fields mismatch (-want +got):\n%s", diff)
	}

	desc.Nested[1].Required = true
	if v := g.Generate(desc, nil); !model.IsUnavailable(v) {
		t.Fatalf("expected Unavailable when a required sub-field fails, got %#v", v)
	}
	if v := g.Generate(model.FieldDescriptor{Type: model.FieldTypeOne2Many}, nil); !model.IsUnavailable(v) {
		t.Fatalf("expected Unavailable for an empty row, got %#v", v)
	}
}

// Rows drawing a required many2one from three codes, each excluding the
// codes already used, exhaust the pool on the fourth row.
func TestRowsExhaustRequiredCandidates(t *testing.T) {
	t.Parallel()

	g := New(WithSeed(13))
	code := model.FieldDescriptor{Name: "code", Type: model.FieldTypeMany2One, Required: true, CandidateIDs: []model.ID{1, 2, 3}}

	var used []model.Scalar
	for i := range 3 {
		row := g.NewRow()
		if !row.Add(code, used) {
			t.Fatalf("row %d: expected a code", i)
		}
		id := row.Values()["code"].(model.ID)
		used = append(used, id)
	}
	if len(uniqueScalars(used)) != 3 {
		t.Fatalf("codes not pairwise distinct: %v", used)
	}

	row := g.NewRow()
	if row.Add(code, used) {
		t.Fatalf("fourth row should not find a code")
	}
	if !row.Failed() || !model.IsUnavailable(row.Value()) {
		t.Fatalf("fourth row should be Unavailable")
	}
}

func uniqueScalars(values []model.Scalar) map[any]struct{} {
	out := make(map[any]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func TestLimitsNormalize(t *testing.T) {
	t.Parallel()

	got := Limits{MinString: 10, MaxString: 2, MinNumber: 50, MaxNumber: 5}.normalize()
	want := Limits{MinString: 10, MaxString: 40, TextFactor: DefaultTextFactor, MinNumber: 5, MaxNumber: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize mismatch (-want +got):\n%s", diff)
	}
}
