package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Only ErrSaveFailed is fatal to a run; the others turn into
// per-field skip decisions.
var (
	ErrEmptyCandidateSet = errors.New("empty candidate set")
	ErrUnsupportedField  = errors.New("unsupported field")
	ErrApplyRejected     = errors.New("apply rejected")
	ErrSaveFailed        = errors.New("save failed")
)

// FieldError attaches a field name to one of the taxonomy errors.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("field %q", e.Field)
	}
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewFieldError wraps err for field.
func NewFieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// FieldOf returns the field name carried by err, if any.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
