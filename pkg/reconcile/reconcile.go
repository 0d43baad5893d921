// Package reconcile commits generated values to a live record and reports
// which sibling fields changed as a side effect.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Applier writes one field of a live record and returns the names of the
// fields whose state changed as a result.
type Applier interface {
	ApplyFieldChange(ctx context.Context, record model.RecordHandle, field string, value model.GeneratedValue) ([]string, error)
}

// Reconciler sequences applications against an Applier.
type Reconciler struct {
	applier Applier
	logger  *slog.Logger
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for change reports.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Reconciler around applier.
func New(applier Applier, opts ...Option) (*Reconciler, error) {
	if applier == nil {
		return nil, fmt.Errorf("reconcile: applier is required")
	}
	r := &Reconciler{applier: applier, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Apply writes value to field and returns the other fields the host
// reported as changed, sorted and without duplicates. A host rejection is
// wrapped with model.ErrApplyRejected.
func (r *Reconciler) Apply(ctx context.Context, record model.RecordHandle, field string, value model.GeneratedValue) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if model.IsUnavailable(value) {
		return nil, model.NewFieldError(field, model.ErrUnsupportedField)
	}

	r.logger.Debug("writing value", "field", field, "value", model.Raw(value))
	affected, err := r.applier.ApplyFieldChange(ctx, record, field, value)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.NewFieldError(field, fmt.Errorf("%w: %w", model.ErrApplyRejected, err))
	}

	out := normalize(affected, field)
	if len(out) > 0 {
		r.logger.Debug("onchange fields detected", "field", field, "affected", out)
	}
	return out, nil
}

func normalize(names []string, self string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || name == self {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Encode converts a generated value into the shape a host stores: the scalar
// itself, the linked id, the id list, or a map of encoded sub-values.
// Unavailable encodes to nil.
func Encode(value model.GeneratedValue) any {
	switch typed := value.(type) {
	case model.ScalarValue:
		return typed.Value
	case model.SingleRelation:
		return typed.ID
	case model.MultiRelation:
		return append([]model.ID(nil), typed.IDs...)
	case model.NestedCreate:
		out := make(map[string]any, len(typed.Data))
		for name, sub := range typed.Data {
			out[name] = Encode(sub)
		}
		return out
	default:
		return nil
	}
}

// Changed returns, sorted, the keys whose values differ between before and
// after, including keys present on only one side.
func Changed(before, after map[string]any) []string {
	var out []string
	for name, next := range after {
		prev, ok := before[name]
		if !ok || !reflect.DeepEqual(prev, next) {
			out = append(out, name)
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
