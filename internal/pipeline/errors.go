package pipeline

// errors.go defines the stable error taxonomy for the ingestion pipeline.
//
// Every caller-facing failure carries a Kind that survives wrapping, so the
// web layer can map it to an HTTP status and a stable machine-readable code
// without string matching. Underlying warehouse/storage causes are preserved
// through Unwrap for logging.

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindInvalidIdentifier means a table or view name failed strict
	// validation. Fails fast, never reaches the warehouse.
	KindInvalidIdentifier Kind = "invalid_identifier"

	// KindUnsupportedFormat means the upload's file extension is not handled.
	KindUnsupportedFormat Kind = "unsupported_format"

	// KindResolutionError means a required semantic column role had no
	// matching column in the table schema.
	KindResolutionError Kind = "resolution_error"

	// KindUnknownReport means the report id is not in the catalog.
	KindUnknownReport Kind = "unknown_report"

	// KindLoadFailure wraps a warehouse or storage error during a load.
	KindLoadFailure Kind = "load_failure"

	// KindRestoreFailure wraps an error from the SQL dump restore path.
	KindRestoreFailure Kind = "restore_failure"

	// KindPublishFailure means view publishing aborted; no partial view set
	// is reported.
	KindPublishFailure Kind = "publish_failure"
)

// Error is a pipeline failure with a stable kind and a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf creates a pipeline error with a formatted detail message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapErr wraps an underlying cause with a pipeline kind and detail.
// Returns nil if err is nil.
func WrapErr(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the pipeline kind from an error chain.
// Returns false if no pipeline error is present.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given pipeline kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
