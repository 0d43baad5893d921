package session

import (
	"sort"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// RunState is the mutable state of one run. It is created when a run starts
// and discarded when it ends.
type RunState struct {
	ignored       map[string]struct{}
	processed     map[string]model.GeneratedValue
	required      map[string]struct{}
	rows          map[string]int
	requiredStore map[string]map[string][]model.Scalar
	ignoredHits   []string
	skipped       []SkippedField
}

// NewRunState returns an empty state.
func NewRunState() *RunState {
	return &RunState{
		ignored:   make(map[string]struct{}),
		processed: make(map[string]model.GeneratedValue),
		required:  make(map[string]struct{}),
		rows:      make(map[string]int),
	}
}

// Ignore marks names as changed by the host. They are never generated or
// applied again during the run.
func (s *RunState) Ignore(names ...string) {
	for _, name := range names {
		if name != "" {
			s.ignored[name] = struct{}{}
		}
	}
}

// IsIgnored reports whether name was changed by a prior application.
func (s *RunState) IsIgnored(name string) bool {
	_, ok := s.ignored[name]
	return ok
}

func (s *RunState) hitIgnored(name string) {
	s.ignoredHits = append(s.ignoredHits, name)
}

// Record stores the value applied to field. A one2many field is recorded
// once per row; the last row wins.
func (s *RunState) Record(field string, value model.GeneratedValue, required bool) {
	s.processed[field] = value
	if required {
		s.required[field] = struct{}{}
	}
	if _, ok := value.(model.NestedCreate); ok {
		s.rows[field]++
	}
}

// Processed returns the value last applied to field.
func (s *RunState) Processed(field string) (model.GeneratedValue, bool) {
	v, ok := s.processed[field]
	return v, ok
}

func (s *RunState) skip(name string, reason SkipReason, err error) {
	s.skipped = append(s.skipped, SkippedField{Name: name, Reason: reason, Err: err})
}

// ResetRequired starts a fresh required-value store for parent.
func (s *RunState) ResetRequired(parent string) {
	if s.requiredStore == nil {
		s.requiredStore = make(map[string]map[string][]model.Scalar)
	}
	s.requiredStore[parent] = make(map[string][]model.Scalar)
}

// RequiredUsed returns the values already used by earlier rows of parent for
// the required sub-field.
func (s *RunState) RequiredUsed(parent, sub string) []model.Scalar {
	return s.requiredStore[parent][sub]
}

// RememberRequired appends value to the store of parent's sub-field.
func (s *RunState) RememberRequired(parent, sub string, value model.Scalar) {
	store, ok := s.requiredStore[parent]
	if !ok {
		return
	}
	store[sub] = append(store[sub], value)
}

// DropRequired discards parent's store once its rows are done.
func (s *RunState) DropRequired(parent string) {
	delete(s.requiredStore, parent)
}

func (s *RunState) result() Result {
	res := Result{
		ProcessedCount:         len(s.processed),
		RequiredProcessedCount: len(s.required),
		IgnoredCount:           len(s.ignoredHits),
		Processed:              make(map[string]model.GeneratedValue, len(s.processed)),
		Ignored:                append([]string(nil), s.ignoredHits...),
		Skipped:                append([]SkippedField(nil), s.skipped...),
	}
	for k, v := range s.processed {
		res.Processed[k] = v
	}
	if len(s.rows) > 0 {
		res.Rows = make(map[string]int, len(s.rows))
		for k, v := range s.rows {
			res.Rows[k] = v
		}
	}
	return res
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
