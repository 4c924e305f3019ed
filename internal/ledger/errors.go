package ledger

import (
	"errors"
	"fmt"
)

// Code classifies a ledger failure. Every failure aborts the whole operation.
type Code string

const (
	CodeUnauthorized    Code = "unauthorized"
	CodeNotFound        Code = "not_found"
	CodeAlreadyExists   Code = "already_exists"
	CodeInvalidAmount   Code = "invalid_amount"
	CodeSymbolMismatch  Code = "symbol_mismatch"
	CodeInvalidArgument Code = "invalid_argument"
	CodeSupplyExceeded  Code = "supply_exceeded"
	CodeOverdrawn       Code = "overdrawn"
	CodeImmature        Code = "immature"
	CodeSelfTransfer    Code = "self_transfer"
	CodeNonZeroBalance  Code = "non_zero_balance"
	CodeMemoTooLong     Code = "memo_too_long"
	CodeInvariant       Code = "invariant_violation"
)

// Error is a typed ledger failure.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is matches any *Error with the same code. A symbol mismatch is also an
// invalid amount.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeInvalidAmount && e.Code == CodeSymbolMismatch
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized    = &Error{Code: CodeUnauthorized}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrAlreadyExists   = &Error{Code: CodeAlreadyExists}
	ErrInvalidAmount   = &Error{Code: CodeInvalidAmount}
	ErrSymbolMismatch  = &Error{Code: CodeSymbolMismatch}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument}
	ErrSupplyExceeded  = &Error{Code: CodeSupplyExceeded}
	ErrOverdrawn       = &Error{Code: CodeOverdrawn}
	ErrImmature        = &Error{Code: CodeImmature}
	ErrSelfTransfer    = &Error{Code: CodeSelfTransfer}
	ErrNonZeroBalance  = &Error{Code: CodeNonZeroBalance}
	ErrMemoTooLong     = &Error{Code: CodeMemoTooLong}
	ErrInvariant       = &Error{Code: CodeInvariant}
)

// Errorf builds a typed error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or "" if err is not a ledger error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
