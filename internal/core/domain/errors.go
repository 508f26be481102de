package domain

import "errors"

// Sentinel errors returned by the storage layer. Services translate these
// into the apperror taxonomy; they are never surfaced to callers directly.
var (
	// ErrAccountNotFound indicates the account row does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrVersionConflict indicates a concurrent writer changed the account
	// between read and update. The operation may be retried.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrBalanceExceeded indicates the mutation would drive the balance
	// negative. Never retried.
	ErrBalanceExceeded = errors.New("balance would become negative")
	// ErrDuplicateIdentifier indicates a generated transaction identifier
	// or reference number already exists in the ledger.
	ErrDuplicateIdentifier = errors.New("duplicate transaction identifier")
	// ErrInvalidAmount indicates a non-positive amount or one with more
	// than two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSameAccount indicates a transfer where source and destination are
	// the same account.
	ErrSameAccount = errors.New("source and destination accounts are identical")
)
