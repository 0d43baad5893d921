package session

import (
	"time"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Phase names the stages a run moves through.
type Phase string

const (
	PhaseOpenForm   Phase = "OPEN_FORM"
	PhaseWalkFields Phase = "WALK_FIELDS"
	PhaseGenerate   Phase = "GENERATE"
	PhaseApply      Phase = "APPLY"
	PhaseReconcile  Phase = "RECONCILE"
	PhaseSave       Phase = "SAVE"
	PhaseReport     Phase = "REPORT"
)

// SkipReason explains why a field leaf was not written.
type SkipReason string

const (
	SkipIgnored       SkipReason = "changed by onchange"
	SkipNoMetadata    SkipReason = "no field metadata"
	SkipInvisible     SkipReason = "invisible"
	SkipReadonly      SkipReason = "readonly"
	SkipEmptySet      SkipReason = "empty candidate set"
	SkipUnsupported   SkipReason = "unsupported field"
	SkipApplyRejected SkipReason = "apply rejected"
	SkipModifierError SkipReason = "modifier error"
	SkipDuplicate     SkipReason = "already written"
)

// SkippedField records one field leaf the run did not write.
type SkippedField struct {
	Name   string
	Reason SkipReason
	Err    error
}

// Result summarises a run.
type Result struct {
	Outcome                Outcome
	Model                  string
	RecordID               model.ID
	ProcessedCount         int
	RequiredProcessedCount int
	IgnoredCount           int
	// Processed holds the last value applied to each field.
	Processed map[string]model.GeneratedValue
	// Rows counts the nested rows applied to each one2many field.
	Rows     map[string]int
	Ignored  []string
	Skipped  []SkippedField
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the record was saved.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Fields returns the processed field names in lexical order.
func (r Result) Fields() []string {
	return sortedKeys(r.Processed)
}
