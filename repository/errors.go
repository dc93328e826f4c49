package repository

import "errors"

// Contract-level errors shared by the account and transaction repositories.
// Not-found lookups surface as sql.ErrNoRows, matching database/sql.
var (
	// ErrVersionConflict means a compare-and-swap lost to a concurrent
	// writer: the stored version no longer matched the expected one.
	ErrVersionConflict = errors.New("account version conflict")

	// ErrInvalidTransition means a status change was requested that is not
	// pending -> completed or pending -> failed, including any attempt to
	// move a record out of a terminal state.
	ErrInvalidTransition = errors.New("invalid transaction status transition")

	// ErrDuplicateIdempotencyKey means a transaction with the same
	// idempotency key has already been accepted.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	ErrInvalidAmount = errors.New("transaction amount must be positive")
	ErrSameAccount   = errors.New("sender and receiver accounts must differ")
)
