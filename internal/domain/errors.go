package domain

import "errors"

// ErrorReason classifies a per-row data error. Data errors document an
// unprocessable row; they never abort the run and carry no judgement on the
// overall migration.
type ErrorReason string

const (
	ReasonUnparseableRow       ErrorReason = "unparseable_row"
	ReasonRequiredFieldMissing ErrorReason = "required_field_missing"
	ReasonTypeCoercionFailed   ErrorReason = "type_coercion_failed"
	ReasonForeignKeyUnresolved ErrorReason = "foreign_key_unresolved"
	ReasonConstraintViolation  ErrorReason = "constraint_violation"
)

// StageError is one row that could not be processed during a stage. Raw
// carries the row payload for investigator review, in source column order.
type StageError struct {
	EntityType EntityType
	File       string
	Line       int
	Reason     ErrorReason
	Detail     string
	Raw        map[string]string
}

// NewStageError builds a stage error attributed to the given snapshot row.
func NewStageError(entityType EntityType, row SnapshotRow, reason ErrorReason, detail string) *StageError {
	return &StageError{
		EntityType: entityType,
		File:       row.File,
		Line:       row.Line,
		Reason:     reason,
		Detail:     detail,
		Raw:        row.Values,
	}
}

// Fatal configuration errors. These abort the run immediately: the operator's
// environment or the pipeline's own configuration is wrong, not the data.
var (
	ErrSnapshotFileMissing = errors.New("expected snapshot file is missing")
	ErrFixtureFileMissing  = errors.New("required fixture file is missing")
	ErrUnknownEntityType   = errors.New("no mapping registered for entity type")
)
