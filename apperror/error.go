package apperror

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNoSuchPrincipal      Code = "NO_SUCH_PRINCIPAL"
	CodeMismatch             Code = "MISMATCH"
	CodeOutOfShift           Code = "OUT_OF_SHIFT"
	CodeEarlyClockout        Code = "EARLY_CLOCKOUT_WARNING"
	CodeIdentityMismatch     Code = "IDENTITY_MISMATCH"
	CodeBadCode              Code = "BAD_CODE"
	CodeValidation           Code = "VALIDATION_FAILED"
	CodePersistence          Code = "PERSISTENCE_ERROR"
	CodeTransportUnavailable Code = "TRANSPORT_UNAVAILABLE"

	CodeNotFound Code = "NOT_FOUND"
	CodeInactive Code = "INACTIVE"
	CodeConflict Code = "CONFLICT"
	CodeBusy     Code = "BUSY"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GetCode returns the code carried by err, or CodePersistence for foreign errors.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodePersistence
}

func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}
