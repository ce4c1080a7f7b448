package types

import "errors"

// Error is the engine's error type. Code is a stable machine-readable
// identifier; Message is human-readable context. All engine errors are
// terminal for the operation that produced them: nothing is retried and
// no partial state is left behind.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is match two engine errors by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewError builds an engine error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error codes.
const (
	ErrAlreadyInitialized  = "ALREADY_INITIALIZED"
	ErrNotInitialized      = "NOT_INITIALIZED"
	ErrDuplicatePayment    = "DUPLICATE_PAYMENT"
	ErrInvalidAmount       = "INVALID_AMOUNT"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrUnauthorizedRelay   = "UNAUTHORIZED_RELAY"
	ErrInvalidPaymentState = "INVALID_PAYMENT_STATE"
	ErrPaymentNotFailed    = "PAYMENT_NOT_FAILED"
	ErrUnauthorized        = "UNAUTHORIZED"
	ErrNotFound            = "NOT_FOUND"
	ErrArithmeticOverflow  = "ARITHMETIC_OVERFLOW"
	ErrInvalidMessageData  = "INVALID_MESSAGE_DATA"
	ErrAlreadyPaid         = "ALREADY_PAID"
	ErrRequestExpired      = "REQUEST_EXPIRED"
)

// CodeOf returns the engine error code carried by err, or "" when err is
// not an engine error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
