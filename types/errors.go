package types

import "errors"

// Code is a machine-readable error code. Every failed mutating operation
// is rejected with one of these codes and leaves state unchanged.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeAuthorization     Code = "AUTHORIZATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeAlreadySold       Code = "ALREADY_SOLD"
)

// Error is a coded error surfaced to the caller of a rejected operation.
type Error struct {
	Code    Code
	Message string
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorCode returns the code of the first *Error in err's chain,
// or CodeUnknown if there is none.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err's chain contains an *Error with the given code.
func IsCode(err error, code Code) bool {
	return ErrorCode(err) == code
}
