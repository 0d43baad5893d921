package session

import (
	"context"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// OpenedForm is a freshly opened draft record and the view that edits it.
type OpenedForm struct {
	Record model.RecordHandle
	View   *model.FormView
}

// FormOpener opens a new record form for a model. An empty viewRef selects
// the model's default form view.
type FormOpener interface {
	OpenFormRecord(ctx context.Context, modelName, viewRef string) (OpenedForm, error)
}

// CandidateSearcher returns the ids of relation records matching domain once
// its references are bound to bindings. An empty domain matches every record.
type CandidateSearcher interface {
	SearchCandidateIDs(ctx context.Context, relation, domain string, bindings map[string]any) ([]model.ID, error)
}

// FieldApplier writes one field of a live record and reports the fields whose
// state changed as a result.
type FieldApplier interface {
	ApplyFieldChange(ctx context.Context, record model.RecordHandle, field string, value model.GeneratedValue) ([]string, error)
}

// RecordSaver persists a record and returns its id.
type RecordSaver interface {
	SaveRecord(ctx context.Context, record model.RecordHandle) (model.ID, error)
}

// DialogCloser releases the form after a successful save. It is best effort.
type DialogCloser interface {
	CloseFormDialog(record model.RecordHandle)
}

// RecordReader exposes the current values of a live record, used to evaluate
// modifiers and bind domains.
type RecordReader interface {
	RecordValues(ctx context.Context, record model.RecordHandle) (map[string]any, error)
}

// Backend bundles every collaborator a run needs.
type Backend interface {
	FormOpener
	CandidateSearcher
	FieldApplier
	RecordSaver
	DialogCloser
	RecordReader
}
