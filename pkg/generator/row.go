package generator

import "github.com/goliatone/go-formfuzz/pkg/model"

// Row accumulates the sub-field values of one nested one2many row. Callers
// that resolve candidate ids between sub-fields (domains bound to the row so
// far) add descriptors one at a time and read Values in between.
type Row struct {
	g      *Generator
	data   map[string]model.GeneratedValue
	failed bool
}

// NewRow starts an empty row.
func (g *Generator) NewRow() *Row {
	return &Row{g: g, data: make(map[string]model.GeneratedValue)}
}

// Add generates a value for desc and stores it. It reports whether a value
// was produced. A required sub-field that cannot be generated makes the whole
// row Unavailable.
func (r *Row) Add(desc model.FieldDescriptor, excluded []model.Scalar) bool {
	value := r.g.Generate(desc, excluded)
	if model.IsUnavailable(value) {
		if desc.Required {
			r.failed = true
		}
		return false
	}
	r.data[desc.Name] = value
	return true
}

// Value returns the row as a NestedCreate, or Unavailable when it is empty or
// a required sub-field failed.
func (r *Row) Value() model.GeneratedValue {
	if r.failed || len(r.data) == 0 {
		return model.Unavailable
	}
	data := make(map[string]model.GeneratedValue, len(r.data))
	for k, v := range r.data {
		data[k] = v
	}
	return model.NewNested(data)
}

// Values returns the raw values generated so far.
func (r *Row) Values() map[string]any {
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		out[k] = model.Raw(v)
	}
	return out
}

// Failed reports whether a required sub-field could not be generated.
func (r *Row) Failed() bool {
	return r.failed
}
