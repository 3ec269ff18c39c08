// Package errs implements the brainy error taxonomy: a small closed set of
// error kinds the engine returns at its public boundary, each distinguishable
// via errors.As so callers can branch on kind without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which row of the error taxonomy an error belongs to.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage"
	KindIntegrity  Kind = "integrity"
	KindCapacity   Kind = "capacity"
	KindCancelled  Kind = "cancelled"
)

// Error is the concrete type behind every brainy-returned error. Field is
// populated for validation errors so the caller gets the offending field
// name and accepted range deterministically (spec §7).
type Error struct {
	Kind      Kind
	Message   string
	Field     string // populated for KindValidation
	Transient bool   // populated for KindStorage: true if retriable
	Err       error  // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, errs.NotFound) style sentinel checks by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func kindSentinel(k Kind) *Error { return &Error{Kind: k} }

// Sentinels for errors.Is comparisons, e.g. errors.Is(err, errs.NotFound).
var (
	NotFound  = kindSentinel(KindNotFound)
	Validation = kindSentinel(KindValidation)
	Conflict  = kindSentinel(KindConflict)
	Storage   = kindSentinel(KindStorage)
	Integrity = kindSentinel(KindIntegrity)
	Capacity  = kindSentinel(KindCapacity)
	Cancelled = kindSentinel(KindCancelled)
)

// Validationf builds a ValidationError naming the offending field, per spec
// §7: "validation errors are always deterministic and contain the offending
// field name and the accepted range."
func Validationf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error. Callers at the API boundary (get,
// delete) generally translate this into a nil/no-op rather than surfacing
// it, per spec §7.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a ConflictError, e.g. a duplicate explicit id on add.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Storagef wraps a storage-layer failure. transient indicates whether the
// transaction layer should retry with backoff (spec §7 StorageError rows).
func Storagef(transient bool, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorage, Transient: transient, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// Integrityf builds an IntegrityError (corrupted blob, header mismatch).
func Integrityf(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindIntegrity, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// Capacityf builds a CapacityError (quota exceeded, disk full).
func Capacityf(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindCapacity, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// Cancelledf builds a CancelledError for deadline/cancellation exits.
func Cancelledf(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindCancelled, Err: cause, Message: fmt.Sprintf(format, args...)}
}

// IsTransientStorage reports whether err is a retriable StorageError.
func IsTransientStorage(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindStorage && e.Transient
	}
	return false
}
