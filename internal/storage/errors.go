package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when appending a record whose ID already
	// exists. The distribution ledger is write-once.
	ErrDuplicateKey = errors.New("duplicate key: ledger records are write-once")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
