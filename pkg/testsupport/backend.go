package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/reconcile"
	"github.com/goliatone/go-formfuzz/pkg/session"
)

// Change records one ApplyFieldChange call.
type Change struct {
	Field string
	Value model.GeneratedValue
}

// Search records one SearchCandidateIDs call.
type Search struct {
	Relation string
	Domain   string
	Bindings map[string]any
}

// Backend is a scripted session.Backend. It serves a single form, keeps the
// applied values as the record state and answers searches from Candidates.
type Backend struct {
	View *model.FormView
	// Candidates maps a relation to the ids every search on it returns.
	Candidates map[string][]model.ID
	// Affected maps a field to the names the host reports after it is written.
	Affected map[string][]string
	// Reject maps a field to the error ApplyFieldChange returns for it.
	Reject  map[string]error
	SaveErr error
	OpenErr error
	SavedID model.ID

	mu       sync.Mutex
	values   map[string]any
	changes  []Change
	searches []Search
	saved    bool
	closed   bool
}

var _ session.Backend = (*Backend)(nil)

const recordHandle model.RecordHandle = "record-1"

func (b *Backend) OpenFormRecord(ctx context.Context, modelName, viewRef string) (session.OpenedForm, error) {
	if err := ctx.Err(); err != nil {
		return session.OpenedForm{}, err
	}
	if b.OpenErr != nil {
		return session.OpenedForm{}, b.OpenErr
	}
	if b.View == nil {
		return session.OpenedForm{}, fmt.Errorf("testsupport: no view for %q", modelName)
	}
	b.mu.Lock()
	b.values = make(map[string]any)
	b.mu.Unlock()
	return session.OpenedForm{Record: recordHandle, View: b.View}, nil
}

func (b *Backend) SearchCandidateIDs(ctx context.Context, relation, domain string, bindings map[string]any) ([]model.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searches = append(b.searches, Search{Relation: relation, Domain: domain, Bindings: bindings})
	return append([]model.ID(nil), b.Candidates[relation]...), nil
}

func (b *Backend) ApplyFieldChange(ctx context.Context, record model.RecordHandle, field string, value model.GeneratedValue) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record != recordHandle {
		return nil, errors.New("testsupport: unknown record")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, Change{Field: field, Value: value})
	if err := b.Reject[field]; err != nil {
		return nil, err
	}
	b.values[field] = reconcile.Encode(value)
	for _, name := range b.Affected[field] {
		if _, ok := b.values[name]; !ok {
			b.values[name] = true
		}
	}
	return append([]string{field}, b.Affected[field]...), nil
}

func (b *Backend) SaveRecord(ctx context.Context, record model.RecordHandle) (model.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.SaveErr != nil {
		return 0, b.SaveErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = true
	if b.SavedID == 0 {
		return 1, nil
	}
	return b.SavedID, nil
}

func (b *Backend) CloseFormDialog(model.RecordHandle) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *Backend) RecordValues(ctx context.Context, record model.RecordHandle) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out, nil
}

// Changes returns the applied changes in call order.
func (b *Backend) Changes() []Change {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Change(nil), b.changes...)
}

// ChangesFor returns the values applied to field in call order.
func (b *Backend) ChangesFor(field string) []model.GeneratedValue {
	var out []model.GeneratedValue
	for _, c := range b.Changes() {
		if c.Field == field {
			out = append(out, c.Value)
		}
	}
	return out
}

// Searches returns the candidate searches in call order.
func (b *Backend) Searches() []Search {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Search(nil), b.searches...)
}

// Saved reports whether SaveRecord succeeded.
func (b *Backend) Saved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved
}

// Closed reports whether the dialog was closed.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
