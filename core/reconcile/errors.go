package reconcile

import (
	"errors"
	"fmt"
)

// RecordError is a per-record failure. It is always contained by the stage
// that produced it and never aborts the run.
type RecordError struct {
	Kind   Kind
	Key    string
	Reason Reason
	Err    error
}

func (e *RecordError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s: %v", e.Kind, e.Key, e.Reason, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Unresolved builds a RecordError for a missing required reference.
func Unresolved(kind Kind, key, format string, args ...any) *RecordError {
	return &RecordError{
		Kind:   kind,
		Key:    key,
		Reason: ReasonUnresolvedReference,
		Err:    fmt.Errorf(format, args...),
	}
}

// Malformed builds a RecordError for a record that failed boundary validation.
func Malformed(kind Kind, key string, err error) *RecordError {
	return &RecordError{Kind: kind, Key: key, Reason: ReasonMalformedRecord, Err: err}
}

// StoreError is an infrastructure failure of the relational store
// (connectivity loss, constraint violation). It aborts the run.
type StoreError struct {
	// Op describes the operation that failed, e.g. "lookup user".
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreFailure wraps err as a StoreError unless it already is one.
// It returns nil for a nil err.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreFailure reports whether err carries a StoreError.
func IsStoreFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// AsRecordError extracts the RecordError from err, if any.
func AsRecordError(err error) (*RecordError, bool) {
	var re *RecordError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
