// Package apperr defines the error taxonomy shared by the settlement engine,
// the ingestion pipeline, the reseed controller and the HTTP layer.  Lower
// layers classify failures with a Kind; handlers translate the Kind into a
// status code and a machine-readable body without inspecting messages.
package apperr

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindValidation        Kind = "validation"          // malformed or missing request parameters
	KindNotFoundReference Kind = "not_found_reference" // unknown operator / station id in a parameter
	KindBadParameter      Kind = "bad_parameter"       // parameter well-formed but unusable (e.g. not a station operator)
	KindEmptyResult       Kind = "empty_result"        // query succeeded with zero matching rows
	KindRowSkip           Kind = "row_skip"            // one input row ignored during ingestion/reseed
	KindSourceUnavailable Kind = "source_unavailable"  // input file missing or unreadable
	KindConflict          Kind = "conflict"            // another import/reset holds the lock
	KindStorage           Kind = "storage"             // query or transaction failure
	KindAuth              Kind = "auth"                // missing, invalid or expired token
	KindForbidden         Kind = "forbidden"           // authenticated but lacking the role
	KindTimeout           Kind = "timeout"             // deadline exceeded
	KindRateLimited       Kind = "rate_limited"        // caller exhausted its request budget
	KindInternal          Kind = "internal"
)

// Error is the concrete error type carried through the service.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
	Fields  map[string]string // per-field detail for validation failures
	stack   errors.StackTrace
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches two *Error values by Kind and Code so sentinels declared with
// New can be compared with errors.Is after being wrapped.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// StackTrace exposes the capture point for logging.
func (e *Error) StackTrace() errors.StackTrace { return e.stack }

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an Error of kind k with a machine code and message.
func New(k Kind, code, message string) *Error {
	return &Error{
		Kind:    k,
		Code:    code,
		Message: message,
		stack:   errors.New("").(stackTracer).StackTrace()[1:],
	}
}

// Wrap attaches kind, code and message to cause.  A nil cause yields nil.
// A deadline hit anywhere in the chain is reclassified as KindTimeout.
func Wrap(cause error, k Kind, code, message string) *Error {
	if cause == nil {
		return nil
	}
	if stderrors.Is(cause, context.DeadlineExceeded) {
		k, code = KindTimeout, CodeTimeout
	}
	return &Error{
		Kind:    k,
		Code:    code,
		Message: message,
		Cause:   cause,
		stack:   errors.WithStack(cause).(stackTracer).StackTrace(),
	}
}

// Machine codes used in response bodies.
const (
	CodeBadRequest        = "bad_request"
	CodeInvalidDate       = "invalid_date"
	CodeInvalidPeriod     = "invalid_period"
	CodeInvalidFormat     = "invalid_format"
	CodeUnknownOperator   = "unknown_operator"
	CodeUnknownStation    = "unknown_station"
	CodeNotStationOp      = "not_station_operator"
	CodeNoContent         = "no_content"
	CodeFileNotFound      = "file_not_found"
	CodeFileUnreadable    = "file_unreadable"
	CodeImportInProgress  = "import_in_progress"
	CodeDatabase          = "database_error"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeTimeout           = "timeout"
	CodeTooManyRequests   = "too_many_requests"
	CodeInternal          = "internal_error"
	CodeMissingField      = "missing_field"
	CodeInvalidTimestamp  = "invalid_timestamp"
	CodeNegativeCharge    = "negative_charge"
	CodeStationNotFound   = "station_not_found"
	CodeDuplicateStation  = "duplicate_station"
	CodeMalformedRow      = "malformed_row"
	CodeInvalidCredential = "invalid_credentials"
)

// ErrNoContent signals a successful query with nothing to report.
var ErrNoContent = New(KindEmptyResult, CodeNoContent, "no matching passes")

// Validation is shorthand for a KindValidation error.
func Validation(code, message string) *Error { return New(KindValidation, code, message) }

// WithFields attaches per-field details and returns e.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

// FieldsOf returns the per-field details of err, if any.
func FieldsOf(err error) map[string]string {
	var ae *Error
	if stderrors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

// Storage wraps a database failure.
func Storage(cause error, message string) *Error {
	return Wrap(cause, KindStorage, CodeDatabase, message)
}

// KindOf reports the Kind of err, KindTimeout for bare deadline errors and
// KindInternal for anything unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if stderrors.As(err, &ae) {
		return ae.Kind
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// CodeOf reports the machine code of err.
func CodeOf(err error) string {
	var ae *Error
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeInternal
}

// MessageOf reports the client-facing message of err.  Unclassified errors
// get a generic message so driver details do not leak.
func MessageOf(err error) string {
	var ae *Error
	if stderrors.As(err, &ae) {
		return ae.Message
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "operation timed out"
	}
	return "internal error"
}

// HTTPStatus maps err onto the status codes of the public API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindValidation, KindNotFoundReference, KindBadParameter, KindSourceUnavailable:
		return http.StatusBadRequest
	case KindEmptyResult:
		return http.StatusNoContent
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
