package asset

import "errors"

var (
	ErrInvalidName    = errors.New("invalid account name")
	ErrInvalidSymbol  = errors.New("invalid symbol")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrSymbolMismatch = errors.New("symbol precision mismatch")
	ErrAmountOverflow = errors.New("amount overflow")
)
