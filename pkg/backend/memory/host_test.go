package memory_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formfuzz/pkg/backend/memory"
	"github.com/goliatone/go-formfuzz/pkg/generator"
	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/session"
	"github.com/goliatone/go-formfuzz/pkg/walker"
)

func loadHost(t *testing.T) *memory.Host {
	t.Helper()

	host, err := memory.Load(os.DirFS("testdata"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return host
}

func TestLoadListsModels(t *testing.T) {
	t.Parallel()

	want := []string{"res.country", "res.country.state", "res.partner", "res.partner.category"}
	if diff := cmp.Diff(want, loadHost(t).Models()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAcceptsSingleFile(t *testing.T) {
	t.Parallel()

	host, err := memory.LoadFile("testdata/partner.yaml")
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(host.Records("res.country")) != 3 {
		t.Fatalf("expected 3 countries")
	}
}

func TestOpenFormRecordResolvesViews(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	ctx := context.Background()

	opened, err := host.OpenFormRecord(ctx, "res.partner", "")
	if err != nil {
		t.Fatalf("OpenFormRecord returned error: %v", err)
	}
	if opened.Record == "" || opened.View == nil || opened.View.Arch.Tag != "form" {
		t.Fatalf("unexpected opened form: %+v", opened)
	}
	values, err := host.RecordValues(ctx, opened.Record)
	if err != nil {
		t.Fatalf("RecordValues returned error: %v", err)
	}
	if values["company_type"] != "person" {
		t.Fatalf("expected default company_type, got %v", values["company_type"])
	}

	if _, err := host.OpenFormRecord(ctx, "res.partner", "missing"); !errors.Is(err, memory.ErrUnknownView) {
		t.Fatalf("expected ErrUnknownView, got %v", err)
	}
	if _, err := host.OpenFormRecord(ctx, "res.users", ""); !errors.Is(err, memory.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestSearchCandidateIDsBindsDomain(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	ctx := context.Background()

	ids, err := host.SearchCandidateIDs(ctx, "res.country.state", "[('country_id', '=', country_id)]", map[string]any{"country_id": model.ID(2)})
	if err != nil {
		t.Fatalf("SearchCandidateIDs returned error: %v", err)
	}
	if diff := cmp.Diff([]model.ID{2, 3}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	ids, err = host.SearchCandidateIDs(ctx, "res.country", "", nil)
	if err != nil {
		t.Fatalf("SearchCandidateIDs returned error: %v", err)
	}
	if diff := cmp.Diff([]model.ID{1, 2, 3}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	ids, err = host.SearchCandidateIDs(ctx, "res.country.state", "[('country_id', '=', country_id)]", nil)
	if err != nil {
		t.Fatalf("SearchCandidateIDs returned error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("unbound reference must match nothing, got %v", ids)
	}
}

func TestApplyFieldChangeRunsOnchange(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	ctx := context.Background()
	opened, err := host.OpenFormRecord(ctx, "res.partner", "")
	if err != nil {
		t.Fatalf("OpenFormRecord returned error: %v", err)
	}

	affected, err := host.ApplyFieldChange(ctx, opened.Record, "is_company", model.NewScalar(true))
	if err != nil {
		t.Fatalf("ApplyFieldChange returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"company_type", "is_company"}, affected); diff != "" {
		t.Fatalf("affected mismatch (-want +got):\n%s", diff)
	}

	if _, err := host.ApplyFieldChange(ctx, opened.Record, "company_type", model.NewScalar("robot")); err == nil {
		t.Fatalf("expected error for invalid selection")
	}
	if _, err := host.ApplyFieldChange(ctx, opened.Record, "create_date", model.NewScalar("2024-01-01 00:00:00")); err == nil {
		t.Fatalf("expected error for readonly field")
	}
	if _, err := host.ApplyFieldChange(ctx, "nope", "name", model.NewScalar("x")); !errors.Is(err, memory.ErrUnknownRecord) {
		t.Fatalf("expected ErrUnknownRecord, got %v", err)
	}
}

func TestSaveRecordChecksRequiredFields(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	ctx := context.Background()
	opened, err := host.OpenFormRecord(ctx, "res.partner", "")
	if err != nil {
		t.Fatalf("OpenFormRecord returned error: %v", err)
	}
	if _, err := host.SaveRecord(ctx, opened.Record); err == nil {
		t.Fatalf("expected error without a name")
	}
	if _, err := host.ApplyFieldChange(ctx, opened.Record, "name", model.NewScalar("Acme")); err != nil {
		t.Fatalf("ApplyFieldChange returned error: %v", err)
	}
	id, err := host.SaveRecord(ctx, opened.Record)
	if err != nil {
		t.Fatalf("SaveRecord returned error: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	host.CloseFormDialog(opened.Record)
	if _, err := host.RecordValues(ctx, opened.Record); !errors.Is(err, memory.ErrUnknownRecord) {
		t.Fatalf("closed draft must be discarded, got %v", err)
	}
	records := host.Records("res.partner")
	if len(records) != 1 || records[0]["name"] != "Acme" {
		t.Fatalf("unexpected stored records: %v", records)
	}
}

// A full run over res.partner writes every editable field, never touches the
// field the is_company onchange set, and stores the record.
func TestFuzzRunOverPartner(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	s, err := session.New(host, session.WithGenerator(generator.New(generator.WithSeed(20240501))))
	if err != nil {
		t.Fatalf("session.New returned error: %v", err)
	}

	res, err := s.Run(context.Background(), session.Request{Model: "res.partner"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Succeeded() || res.RecordID == 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := res.Processed["company_type"]; ok {
		t.Fatalf("company_type was written after the is_company onchange")
	}
	if res.IgnoredCount < 1 {
		t.Fatalf("expected company_type to be ignored, got %d", res.IgnoredCount)
	}
	if _, ok := res.Processed["create_date"]; ok {
		t.Fatalf("readonly create_date was written")
	}
	for _, name := range []string{"name", "email", "phone", "website", "comment"} {
		if _, ok := res.Processed[name]; !ok {
			t.Fatalf("expected %s to be processed; processed=%v skipped=%+v", name, res.Fields(), res.Skipped)
		}
	}
	if rows := res.Rows["child_ids"]; rows < 1 || rows > session.DefaultMaxRows {
		t.Fatalf("child_ids rows %d out of [1,%d]", rows, session.DefaultMaxRows)
	}

	stored := host.Records("res.partner")
	if len(stored) != 1 || stored[0]["id"] != res.RecordID {
		t.Fatalf("expected the saved partner in the store, got %v", stored)
	}
	if stored[0]["company_type"] != "company" {
		t.Fatalf("expected onchange value to persist, got %v", stored[0]["company_type"])
	}
}

func TestNewRejectsBadViews(t *testing.T) {
	t.Parallel()

	_, err := memory.New(memory.Model{
		Name:   "x",
		Fields: map[string]model.Field{"a": {Type: model.FieldTypeChar}},
		Views:  map[string]string{memory.DefaultView: "<form>"},
	})
	if err == nil {
		t.Fatalf("expected arch error")
	}
	if _, err := memory.New(memory.Model{Name: "x"}, memory.Model{Name: "x"}); err == nil {
		t.Fatalf("expected duplicate model error")
	}
}

func TestNewSynthesizesDefaultView(t *testing.T) {
	t.Parallel()

	host := loadHost(t)
	opened, err := host.OpenFormRecord(context.Background(), "res.country", "")
	if err != nil {
		t.Fatalf("OpenFormRecord returned error: %v", err)
	}
	want := []string{"code", "name"}
	if diff := cmp.Diff(want, walker.Names(opened.View.Arch)); diff != "" {
		t.Fatalf("default view fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLeavesCallerModelUntouched(t *testing.T) {
	t.Parallel()

	fields := map[string]model.Field{"name": {Type: model.FieldTypeChar}}
	if _, err := memory.New(memory.Model{Name: "x", Fields: fields}); err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if fields["name"].Name != "" {
		t.Fatalf("caller field map was modified: %+v", fields["name"])
	}
}

func TestParseFixtureNormalisesDefaults(t *testing.T) {
	t.Parallel()

	models, err := memory.ParseFixture([]byte(`
models:
  sale.order:
    fields:
      qty: {type: integer, default: 3}
      note: {type: char, default: hello}
`), "inline.yaml")
	if err != nil {
		t.Fatalf("ParseFixture returned error: %v", err)
	}
	host, err := memory.New(models...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()
	opened, err := host.OpenFormRecord(ctx, "sale.order", "")
	if err != nil {
		t.Fatalf("OpenFormRecord returned error: %v", err)
	}
	values, err := host.RecordValues(ctx, opened.Record)
	if err != nil {
		t.Fatalf("RecordValues returned error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"qty": int64(3), "note": "hello"}, values); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsUnboundDomainReference(t *testing.T) {
	t.Parallel()

	country := memory.Model{
		Name:   "res.country",
		Fields: map[string]model.Field{"name": {Type: model.FieldTypeChar}},
	}
	partner := func(arch string) memory.Model {
		return memory.Model{
			Name: "res.partner",
			Fields: map[string]model.Field{
				"country_id": {Type: model.FieldTypeMany2One, Relation: "res.country"},
				"child_ids":  {Type: model.FieldTypeOne2Many, Relation: "res.partner"},
			},
			Views: map[string]string{memory.DefaultView: arch},
		}
	}

	_, err := memory.New(country, partner(`<form><field name="country_id" domain="[('id', '=', contry_id)]"/></form>`))
	if !errors.Is(err, memory.ErrUnboundReference) {
		t.Fatalf("expected ErrUnboundReference, got %v", err)
	}

	_, err = memory.New(country, partner(`<form><field name="child_ids"><tree><field name="country_id" domain="[('id', '=', parent.region_id)]"/></tree></field></form>`))
	if !errors.Is(err, memory.ErrUnboundReference) {
		t.Fatalf("expected ErrUnboundReference for parent reference, got %v", err)
	}

	_, err = memory.New(country, partner(`<form><field name="child_ids"><tree><field name="country_id" domain="[('id', '=', parent.country_id), ('create_uid', '=', uid)]"/></tree></field></form>`))
	if err != nil {
		t.Fatalf("bound references rejected: %v", err)
	}
}
