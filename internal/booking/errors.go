package booking

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a booking failure.
// Handlers map it to an HTTP status.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindAuthorization ErrorKind = "authorization"
	KindInternal      ErrorKind = "internal"
)

// Error codes.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidHeadcount  = "INVALID_HEADCOUNT"
	CodeInvalidSchedule   = "INVALID_SCHEDULE"
	CodeInvalidAddOn      = "INVALID_ADDON"
	CodeGuideUnavailable  = "GUIDE_UNAVAILABLE"
	CodeVisitorNotFound   = "VISITOR_NOT_FOUND"
	CodeItemNotFound      = "ITEM_NOT_FOUND"
	CodeReservationAbsent = "RESERVATION_NOT_FOUND"
	CodeUnitNotFound      = "AUDIO_GUIDE_NOT_FOUND"
	CodeItemUnavailable   = "ITEM_UNAVAILABLE"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodePoolExhausted     = "POOL_EXHAUSTED"
	CodeDuplicateBooking  = "DUPLICATE_BOOKING"
	CodeUnitInUse         = "AUDIO_GUIDE_IN_USE"
	CodeItemHasBookings   = "ITEM_HAS_BOOKINGS"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeGuideNotFound     = "GUIDE_NOT_FOUND"
	CodeCollectionAbsent  = "COLLECTION_NOT_FOUND"
	CodeExhibitNotFound   = "EXHIBIT_NOT_FOUND"
	CodeEmailTaken        = "EMAIL_TAKEN"
	CodeStillReferenced   = "STILL_REFERENCED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
	CodeTimeout           = "STORAGE_TIMEOUT"
)

// Error is returned by every exported Service and AdminService method.
// Message is safe to show to the caller; Err holds the cause for logs and
// is never rendered.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a field-level detail and returns e.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func NewValidation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func NewNotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func NewConflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NewForbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeForbidden, Message: msg}
}

func NewInternal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// AsError converts any error into *Error.  Deadline expiry becomes an
// internal error with CodeTimeout; anything unrecognised becomes a generic
// internal error.  nil stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindInternal, Code: CodeTimeout, Message: "storage timed out", Err: err}
	}
	return NewInternal(err)
}
