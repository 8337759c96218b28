package ingest

import (
	"errors"
	"fmt"
)

var ErrReplaceNotConfirmed = errors.New("REPLACE_ALL deletes every stored company and must be confirmed explicitly")

// SchemaError rejects a whole upload before anything is written,
// e.g. a table with fewer than four columns or an ambiguous header.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "invalid spreadsheet: " + e.Reason
}

// ConnectionError reports that storage could not be reached for a step that
// runs before any batch is written.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type RejectReason string

const (
	ReasonEmptyCIN          RejectReason = "EMPTY_CIN"
	ReasonFieldTooLong      RejectReason = "FIELD_TOO_LONG"
	ReasonInvalidField      RejectReason = "INVALID_FIELD"
	ReasonStorageConstraint RejectReason = "STORAGE_CONSTRAINT"
)

// RowValidationError describes a single row that was skipped.
// The rest of the upload is not affected by it.
type RowValidationError struct {
	Line   int
	CIN    string
	Reason RejectReason
	Detail string
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Reason, e.Detail)
}

// BatchCommitError aborts an upload in the middle of the batched commit.
// Batches committed before the failing one stay in storage.
//
// NotAttempted counts the records of the failing batch (rolled back)
// and of every batch after it.
type BatchCommitError struct {
	Batch            int
	BatchesCommitted int
	RecordsSaved     int
	NotAttempted     int
	Err              error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("batch %d failed after %d committed batches (%d records saved, %d not saved): %v",
		e.Batch, e.BatchesCommitted, e.RecordsSaved, e.NotAttempted, e.Err)
}

func (e *BatchCommitError) Unwrap() error {
	return e.Err
}
