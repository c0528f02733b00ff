package store

import "errors"

var (
	// ErrQuotaExceeded reports that a reservation would push storage_used
	// past storage_limit. No mutation happened.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrAccountNotFound reports a ledger operation against an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEmailTaken reports a registration conflict on the unique email column.
	ErrEmailTaken = errors.New("email already registered")

	// ErrStorageUnderflow reports that a release would have driven
	// storage_used negative. The counter was clamped at zero; callers log
	// this as an invariant violation.
	ErrStorageUnderflow = errors.New("storage release underflow")
)
