// Package duperr holds the typed error kinds the duplicator can return, the
// way pkg/resource/domain/errors.go shapes data-source errors in the teacher
// repo: one struct per kind, a constructor, an Error() method, and Unwrap()
// so callers can still errors.Is/As through to the underlying cause.
package duperr

import "fmt"

// RecordNotFound covers an unpublished root view, a missing row referenced by
// a row_order, a database with no visible views, a database block missing
// view_id/parent_id, or missing metadata for a sibling database view.
type RecordNotFound struct {
	Message string
	Cause   error
}

func NewRecordNotFound(message string) *RecordNotFound {
	return &RecordNotFound{Message: message}
}

func (e *RecordNotFound) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("record not found: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("record not found: %s", e.Message)
}

func (e *RecordNotFound) Unwrap() error { return e.Cause }

// Parse covers UUID parse failures on input ids and JSON parse failures on
// PublishDatabaseData.
type Parse struct {
	Message string
	Cause   error
}

func NewParse(message string, cause error) *Parse {
	return &Parse{Message: message, Cause: cause}
}

func (e *Parse) Error() string {
	return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
}

func (e *Parse) Unwrap() error { return e.Cause }

// Codec covers CRDT encode/decode failures.
type Codec struct {
	Message string
	Cause   error
}

func NewCodec(message string, cause error) *Codec {
	return &Codec{Message: message, Cause: cause}
}

func (e *Codec) Error() string {
	return fmt.Sprintf("codec error: %s: %v", e.Message, e.Cause)
}

func (e *Codec) Unwrap() error { return e.Cause }

// Storage covers SQL errors during insert or meta lookup.
type Storage struct {
	Message string
	Cause   error
}

func NewStorage(message string, cause error) *Storage {
	return &Storage{Message: message, Cause: cause}
}

func (e *Storage) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Message, e.Cause)
}

func (e *Storage) Unwrap() error { return e.Cause }
