package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrDuplicateKey is returned when inserting a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTxDone is returned when a committed or rolled-back tx is used again.
	ErrTxDone = errors.New("transaction already finished")
)
