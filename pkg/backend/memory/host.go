// Package memory is an in-memory form host. It keeps model metadata, parsed
// form views and stored records in process so fuzz runs can be executed and
// tested without a live server.
package memory

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formfuzz/pkg/arch"
	"github.com/goliatone/go-formfuzz/pkg/domain"
	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/reconcile"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

// DefaultView is the view reference used when a request names none.
const DefaultView = "default"

// Errors reported by the host.
var (
	ErrUnknownModel  = errors.New("memory: unknown model")
	ErrUnknownView   = errors.New("memory: unknown view")
	ErrUnknownRecord = errors.New("memory: unknown record")
)

// Model describes one model served by the host.
type Model struct {
	Name   string
	Fields map[string]model.Field
	// Views maps a view reference to its XML arch.
	Views    map[string]string
	Onchange []OnchangeRule
	Records  []map[string]any
	Defaults map[string]any
}

// OnchangeRule reacts to a write of Field. When When is set the rule only
// fires if the written value equals it. Set assigns values and Clear unsets
// fields.
type OnchangeRule struct {
	Field string         `json:"field" yaml:"field"`
	When  any            `json:"when,omitempty" yaml:"when,omitempty"`
	Set   map[string]any `json:"set,omitempty" yaml:"set,omitempty"`
	Clear []string       `json:"clear,omitempty" yaml:"clear,omitempty"`
}

type hostModel struct {
	Model
	views map[string]*model.FormView
}

type draft struct {
	model  *hostModel
	values map[string]any
	saved  bool
}

// Host implements session.Backend over in-memory models.
type Host struct {
	mu      sync.Mutex
	models  map[string]*hostModel
	records map[string]map[model.ID]map[string]any
	nextID  map[string]model.ID
	drafts  map[model.RecordHandle]*draft
}

var _ session.Backend = (*Host)(nil)

// New builds a Host from models. Views are parsed eagerly; the leaves of
// one2many fields receive the nested view of their relation. Domain
// references must name a field of the form or, behind parent., of the form
// embedding it. The caller's models are not modified.
func New(models ...Model) (*Host, error) {
	h := &Host{
		models:  make(map[string]*hostModel, len(models)),
		records: make(map[string]map[model.ID]map[string]any),
		nextID:  make(map[string]model.ID),
		drafts:  make(map[model.RecordHandle]*draft),
	}
	for _, m := range models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, errors.New("memory: model name is required")
		}
		if _, exists := h.models[name]; exists {
			return nil, fmt.Errorf("memory: duplicate model %q", name)
		}
		m.Name = name
		fields := make(map[string]model.Field, len(m.Fields))
		for fieldName, f := range m.Fields {
			if f.Name == "" {
				f.Name = fieldName
			}
			fields[fieldName] = f
		}
		m.Fields = fields
		m.Views = maps.Clone(m.Views)
		if m.Defaults != nil {
			defaults := make(map[string]any, len(m.Defaults))
			for k, v := range m.Defaults {
				defaults[k] = normaliseNumber(v)
			}
			m.Defaults = defaults
		}
		if len(m.Views) == 0 {
			m.Views = map[string]string{DefaultView: defaultArch(m.Fields)}
		}
		h.models[name] = &hostModel{Model: m, views: make(map[string]*model.FormView)}
	}

	for _, hm := range h.models {
		for ref := range hm.Views {
			view, err := h.buildView(hm, ref, 0)
			if err != nil {
				return nil, err
			}
			if err := checkDomainRefs(view, nil); err != nil {
				return nil, fmt.Errorf("memory: model %q view %q: %w", hm.Name, ref, err)
			}
			hm.views[ref] = view
		}
		if err := h.seed(hm); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// defaultArch renders a form listing every field but id in name order. It
// stands in for models declared without views.
func defaultArch(fields map[string]model.Field) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != "id" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("<form><group>")
	for _, name := range names {
		sb.WriteString(`<field name="`)
		_ = xml.EscapeText(&sb, []byte(name))
		sb.WriteString(`"/>`)
	}
	sb.WriteString("</group></form>")
	return sb.String()
}

// maxSubViewDepth bounds nested view attachment so self-referencing models
// (res.partner.child_ids) terminate.
const maxSubViewDepth = 1

func (h *Host) buildView(hm *hostModel, ref string, depth int) (*model.FormView, error) {
	src, ok := hm.Views[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownView, hm.Name, ref)
	}
	root, err := arch.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("memory: model %q view %q: %w", hm.Name, ref, err)
	}
	view := &model.FormView{Model: hm.Name, Arch: root, Fields: hm.Fields}
	if depth >= maxSubViewDepth {
		return view, nil
	}
	if err := h.attachSubViews(view, root, depth); err != nil {
		return nil, fmt.Errorf("memory: model %q view %q: %w", hm.Name, ref, err)
	}
	return view, nil
}

// attachSubViews resolves the nested view of each one2many leaf: an inline
// child element first, then the relation's view named by the leaf's view
// attribute, then its "tree" and default views.
func (h *Host) attachSubViews(view *model.FormView, node *model.ViewNode, depth int) error {
	if node == nil {
		return nil
	}
	if node.IsField() {
		field, ok := view.Field(node.Name())
		if !ok || field.Type != model.FieldTypeOne2Many {
			return nil
		}
		rel, ok := h.models[field.Relation]
		if !ok {
			return nil
		}
		if len(node.Children) > 0 {
			node.SubView = &model.FormView{Model: rel.Name, Arch: node.Children[0], Fields: rel.Fields}
			return nil
		}
		for _, ref := range []string{node.Attr("view"), "tree", DefaultView} {
			if ref == "" {
				continue
			}
			if _, ok := rel.Views[ref]; !ok {
				continue
			}
			sub, err := h.buildView(rel, ref, depth+1)
			if err != nil {
				return err
			}
			node.SubView = sub
			return nil
		}
		return nil
	}
	for _, child := range node.Children {
		if err := h.attachSubViews(view, child, depth); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) seed(hm *hostModel) error {
	store := make(map[model.ID]map[string]any, len(hm.Records))
	var maxID model.ID
	for i, raw := range hm.Records {
		rec := normaliseRecord(hm, raw)
		id, ok := rec["id"].(model.ID)
		if !ok || id <= 0 {
			return fmt.Errorf("memory: model %q record %d needs a positive id", hm.Name, i)
		}
		if _, dup := store[id]; dup {
			return fmt.Errorf("memory: model %q duplicate record id %d", hm.Name, id)
		}
		store[id] = rec
		maxID = max(maxID, id)
	}
	h.records[hm.Name] = store
	h.nextID[hm.Name] = maxID + 1
	return nil
}

func normaliseRecord(hm *hostModel, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		v = normaliseNumber(v)
		switch {
		case k == "id":
			if n, ok := v.(int64); ok {
				v = model.ID(n)
			}
		case hm.Fields[k].Type == model.FieldTypeMany2One:
			if n, ok := v.(int64); ok {
				v = model.ID(n)
			}
		case hm.Fields[k].Type == model.FieldTypeMany2Many:
			v = toIDs(v)
		}
		out[k] = v
	}
	return out
}

func toIDs(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	ids := make([]model.ID, 0, len(list))
	for _, elem := range list {
		if n, ok := normaliseNumber(elem).(int64); ok {
			ids = append(ids, model.ID(n))
		}
	}
	return ids
}

// Models lists the model names in lexical order.
func (h *Host) Models() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.models))
	for name := range h.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Records returns copies of the stored records of modelName in id order.
func (h *Host) Records(modelName string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	store := h.records[modelName]
	out := make([]map[string]any, 0, len(store))
	for _, id := range sortedIDs(store) {
		out = append(out, clone(store[id]))
	}
	return out
}

func (h *Host) OpenFormRecord(ctx context.Context, modelName, viewRef string) (session.OpenedForm, error) {
	if err := ctx.Err(); err != nil {
		return session.OpenedForm{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	hm, ok := h.models[modelName]
	if !ok {
		return session.OpenedForm{}, fmt.Errorf("%w: %q", ErrUnknownModel, modelName)
	}
	ref := strings.TrimSpace(viewRef)
	if ref == "" {
		ref = DefaultView
	}
	view, ok := hm.views[ref]
	if !ok {
		return session.OpenedForm{}, fmt.Errorf("%w: %s/%s", ErrUnknownView, modelName, ref)
	}

	values := make(map[string]any, len(hm.Defaults))
	for k, v := range hm.Defaults {
		values[k] = v
	}
	handle := model.RecordHandle(uuid.NewString())
	h.drafts[handle] = &draft{model: hm, values: values}
	return session.OpenedForm{Record: handle, View: view}, nil
}

func (h *Host) SearchCandidateIDs(ctx context.Context, relation, domainSrc string, bindings map[string]any) ([]model.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := domain.Parse(domainSrc)
	if err != nil {
		return nil, fmt.Errorf("memory: search %s: %w", relation, err)
	}
	bound := d.Bind(bindings)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.models[relation]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, relation)
	}
	store := h.records[relation]
	var out []model.ID
	for _, id := range sortedIDs(store) {
		ok, err := bound.Match(store[id])
		if err != nil {
			return nil, fmt.Errorf("memory: search %s: %w", relation, err)
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (h *Host) ApplyFieldChange(ctx context.Context, record model.RecordHandle, field string, value model.GeneratedValue) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.drafts[record]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, record)
	}
	meta, ok := d.model.Fields[field]
	if !ok {
		return nil, fmt.Errorf("memory: model %q has no field %q", d.model.Name, field)
	}
	if meta.Readonly {
		return nil, fmt.Errorf("memory: field %q is readonly", field)
	}
	encoded := reconcile.Encode(value)
	if err := checkSelection(meta, encoded); err != nil {
		return nil, err
	}

	before := clone(d.values)
	if meta.Type == model.FieldTypeOne2Many {
		row, _ := encoded.(map[string]any)
		rows, _ := d.values[field].([]map[string]any)
		d.values[field] = append(rows, row)
	} else {
		d.values[field] = encoded
	}
	for _, rule := range d.model.Onchange {
		if rule.Field != field || !rule.matches(encoded) {
			continue
		}
		for k, v := range rule.Set {
			d.values[k] = normaliseNumber(v)
		}
		for _, k := range rule.Clear {
			delete(d.values, k)
		}
	}
	return reconcile.Changed(before, d.values), nil
}

func (r OnchangeRule) matches(value any) bool {
	if r.When == nil {
		return true
	}
	return fmt.Sprint(normaliseNumber(r.When)) == fmt.Sprint(normaliseNumber(value))
}

func checkSelection(meta model.Field, value any) error {
	if meta.Type != model.FieldTypeSelection || len(meta.Selection) == 0 || value == nil {
		return nil
	}
	for _, allowed := range meta.Selection {
		if fmt.Sprint(allowed) == fmt.Sprint(value) {
			return nil
		}
	}
	return fmt.Errorf("memory: value %v is not a valid choice for %q", value, meta.Name)
}

func (h *Host) SaveRecord(ctx context.Context, record model.RecordHandle) (model.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.drafts[record]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRecord, record)
	}
	if d.saved {
		return 0, fmt.Errorf("memory: record %s already saved", record)
	}
	var missing []string
	for name, meta := range d.model.Fields {
		if meta.Required && isEmpty(d.values[name]) {
			missing = append(missing, name)
		}
		if err := checkSelection(meta, d.values[name]); err != nil {
			return 0, err
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return 0, fmt.Errorf("memory: model %q missing required fields: %s", d.model.Name, strings.Join(missing, ", "))
	}

	id := h.nextID[d.model.Name]
	h.nextID[d.model.Name] = id + 1
	stored := clone(d.values)
	stored["id"] = id
	h.records[d.model.Name][id] = stored
	d.saved = true
	return id, nil
}

func (h *Host) CloseFormDialog(record model.RecordHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.drafts, record)
}

func (h *Host) RecordValues(ctx context.Context, record model.RecordHandle) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.drafts[record]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, record)
	}
	return clone(d.values), nil
}

func isEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case model.ID:
		return typed == 0
	case []model.ID:
		return len(typed) == 0
	case []map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func clone(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch typed := v.(type) {
		case []model.ID:
			out[k] = append([]model.ID(nil), typed...)
		case []map[string]any:
			out[k] = append([]map[string]any(nil), typed...)
		default:
			out[k] = v
		}
	}
	return out
}

func sortedIDs(store map[model.ID]map[string]any) []model.ID {
	ids := make([]model.ID, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
