package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-formfuzz/pkg/generator"
	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/modifiers"
	"github.com/goliatone/go-formfuzz/pkg/modifiers/expr"
	"github.com/goliatone/go-formfuzz/pkg/reconcile"
	"github.com/goliatone/go-formfuzz/pkg/walker"
)

// DefaultMaxRows bounds the nested rows generated per one2many field.
const DefaultMaxRows = 7

// Option customises a Session.
type Option func(*Session)

// WithGenerator injects the value generator, typically one built with a
// fixed seed.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Session) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithLogger sets the logger used for progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRows overrides the upper bound of nested rows per one2many field.
func WithMaxRows(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// WithReconciler injects the reconciler that applies values.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(s *Session) {
		if r != nil {
			s.reconciler = r
		}
	}
}

// WithModifierEvaluator overrides the evaluator used for invisible, readonly
// and required expressions.
func WithModifierEvaluator(eval modifiers.Evaluator) Option {
	return func(s *Session) {
		if eval != nil {
			s.evaluator = eval
		}
	}
}

// Session drives fuzz runs against a Backend. A Session may run many times;
// each run gets its own RunState.
type Session struct {
	backend    Backend
	generator  *generator.Generator
	reconciler *reconcile.Reconciler
	evaluator  modifiers.Evaluator
	logger     *slog.Logger
	maxRows    int
}

// New constructs a Session. Missing dependencies fall back to a time-seeded
// generator, a reconciler over backend and the expression evaluator.
func New(backend Backend, opts ...Option) (*Session, error) {
	if backend == nil {
		return nil, errors.New("session: backend is required")
	}
	s := &Session{
		backend: backend,
		logger:  slog.Default(),
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.generator == nil {
		s.generator = generator.New()
	}
	if s.evaluator == nil {
		s.evaluator = expr.New()
	}
	if s.reconciler == nil {
		r, err := reconcile.New(backend, reconcile.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		s.reconciler = r
	}
	return s, nil
}

// Request selects the form to fuzz.
type Request struct {
	Model   string
	ViewRef string
}

type run struct {
	*Session
	state  *RunState
	record model.RecordHandle
	view   *model.FormView
}

// Run performs one fuzz pass. The returned error is the Result's Err and is
// non-nil only for a FAILURE outcome.
func (s *Session) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := s.run(ctx, req)
	res.Model = req.Model
	res.Duration = time.Since(start)
	if err != nil {
		res.Outcome = OutcomeFailure
		res.Err = err
		s.logger.Error("fuzz run failed", "model", req.Model, "error", err)
		return res, err
	}
	res.Outcome = OutcomeSuccess
	s.phase(PhaseReport, "record", res.RecordID, "processed", res.ProcessedCount, "ignored", res.IgnoredCount)
	s.logger.Info("fuzz run saved record", "model", req.Model, "id", res.RecordID,
		"processed", res.ProcessedCount, "required", res.RequiredProcessedCount, "ignored", res.IgnoredCount)
	return res, nil
}

func (s *Session) run(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("session: context is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return Result{}, errors.New("session: model is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.phase(PhaseOpenForm, "model", req.Model, "view", req.ViewRef)
	opened, err := s.backend.OpenFormRecord(ctx, req.Model, req.ViewRef)
	if err != nil {
		return Result{}, fmt.Errorf("session: open form: %w", err)
	}
	if opened.View == nil || opened.View.Arch == nil {
		return Result{}, fmt.Errorf("session: open form: model %q returned no view", req.Model)
	}

	r := &run{Session: s, state: NewRunState(), record: opened.Record, view: opened.View}
	if err := r.fill(ctx); err != nil {
		return r.state.result(), err
	}

	s.phase(PhaseSave, "record", r.record)
	id, err := s.backend.SaveRecord(ctx, r.record)
	if err != nil {
		if ctx.Err() != nil {
			return r.state.result(), ctx.Err()
		}
		return r.state.result(), fmt.Errorf("session: %w: %w", model.ErrSaveFailed, err)
	}
	s.backend.CloseFormDialog(r.record)

	res := r.state.result()
	res.RecordID = id
	return res, nil
}

func (s *Session) phase(p Phase, args ...any) {
	s.logger.Debug("fuzz phase", append([]any{"phase", string(p)}, args...)...)
}

func (r *run) fill(ctx context.Context) error {
	r.phase(PhaseWalkFields, "model", r.view.Model)
	for leaf := range walker.Fields(r.view.Arch) {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := leaf.Name()
		if name == "" {
			continue
		}
		if r.state.IsIgnored(name) {
			r.logger.Info("aborting changes: already changed by an onchange", "field", name)
			r.state.hitIgnored(name)
			r.state.skip(name, SkipIgnored, nil)
			continue
		}
		field, ok := r.view.Field(name)
		if !ok {
			r.logger.Debug("field has no metadata", "field", name)
			r.state.skip(name, SkipNoMetadata, nil)
			continue
		}
		if field.Name == "" {
			field.Name = name
		}
		if field.Type != model.FieldTypeOne2Many {
			if _, done := r.state.Processed(name); done {
				r.logger.Debug("field already written", "field", name)
				r.state.skip(name, SkipDuplicate, nil)
				continue
			}
		}

		values := r.values(ctx)
		mods, err := modifiers.Resolve(r.evaluator, leaf, field, modifiers.Context{Values: values})
		if err != nil {
			r.logger.Warn("cannot evaluate modifiers", "field", name, "error", err)
			r.state.skip(name, SkipModifierError, err)
			continue
		}
		if mods.Invisible {
			r.state.skip(name, SkipInvisible, nil)
			continue
		}
		if mods.Readonly {
			r.state.skip(name, SkipReadonly, nil)
			continue
		}

		r.logger.Info("getting field information", "field", name, "type", field.Type)
		if field.Type == model.FieldTypeOne2Many {
			if err := r.fillRows(ctx, leaf, field, mods, values); err != nil {
				return err
			}
			continue
		}

		desc := model.Describe(field, leaf)
		desc.Required = mods.Required
		if field.Type.Relational() {
			desc.CandidateIDs = r.candidates(ctx, field, leaf, values)
		}

		r.phase(PhaseGenerate, "field", name)
		value := r.generator.Generate(desc, nil)
		if _, err := r.apply(ctx, name, value, mods.Required, desc); err != nil {
			return err
		}
	}
	return nil
}

// apply commits one value and folds the reported side effects into the
// ignore set. It reports whether the value was written. Only context
// cancellation is returned as an error; every other failure is recorded as a
// skip.
func (r *run) apply(ctx context.Context, name string, value model.GeneratedValue, required bool, desc model.FieldDescriptor) (bool, error) {
	if model.IsUnavailable(value) {
		reason, cause := SkipEmptySet, model.ErrEmptyCandidateSet
		if generator.KindFor(desc) == generator.KindUnsupported {
			reason, cause = SkipUnsupported, model.ErrUnsupportedField
		}
		r.logger.Info("no value generated", "field", name, "reason", string(reason))
		r.state.skip(name, reason, model.NewFieldError(name, cause))
		return false, nil
	}

	r.phase(PhaseApply, "field", name)
	affected, err := r.reconciler.Apply(ctx, r.record, name, value)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.logger.Warn("cannot write value", "field", name, "error", err)
		r.state.skip(name, SkipApplyRejected, err)
		return false, nil
	}

	r.phase(PhaseReconcile, "field", name, "affected", affected)
	r.state.Record(name, value, required)
	r.state.Ignore(affected...)
	return true, nil
}

func (r *run) values(ctx context.Context) map[string]any {
	values, err := r.backend.RecordValues(ctx, r.record)
	if err != nil {
		r.logger.Warn("cannot read record values", "error", err)
		return map[string]any{}
	}
	return values
}

func (r *run) candidates(ctx context.Context, field model.Field, leaf *model.ViewNode, bindings map[string]any) []model.ID {
	if field.Relation == "" {
		return nil
	}
	ids, err := r.backend.SearchCandidateIDs(ctx, field.Relation, leaf.Attr("domain"), bindings)
	if err != nil {
		r.logger.Warn("cannot search candidates", "field", field.Name, "relation", field.Relation, "error", err)
		return nil
	}
	return ids
}
