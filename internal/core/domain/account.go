package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDailyLimit is the per-transaction ceiling assigned to new accounts.
var DefaultDailyLimit = decimal.NewFromInt(10000)

// Account represents an owner's wallet. The balance is mutated only by the
// fund-movement engine, under a row lock and a version check; it must never
// be persisted negative.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AccountNumber string          `json:"account_number"` // WAL-prefixed, unique, display/lookup
	Balance       decimal.Decimal `json:"balance"`
	DailyLimit    decimal.Decimal `json:"daily_limit"`
	Version       int64           `json:"-"` // Optimistic concurrency guard
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewAccount builds a fresh zero-balance account with the default
// per-transaction ceiling.
func NewAccount(ownerID uuid.UUID, accountNumber string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		AccountNumber: accountNumber,
		Balance:       decimal.Zero,
		DailyLimit:    DefaultDailyLimit,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HasSufficientBalance reports whether the account can cover a debit of amount.
func (a *Account) HasSufficientBalance(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// WithinDailyLimit reports whether amount is at or below the account's
// per-transaction ceiling.
func (a *Account) WithinDailyLimit(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(a.DailyLimit)
}
