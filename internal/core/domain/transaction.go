package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypePeerTransfer    TransactionType = "PEER_TRANSFER"
	TransactionTypeMerchantPayment TransactionType = "MERCHANT_PAYMENT"
	TransactionTypeWalletTopup     TransactionType = "WALLET_TOPUP"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Rows are only ever written in a terminal state; PENDING exists for
// wire compatibility but is never observable after an orchestrator returns.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger entry for one fund movement.
//
// Exactly one shape exists per type:
//
//	PEER_TRANSFER:    FromAccountID != nil, ToAccountID != nil, MerchantID == nil
//	MERCHANT_PAYMENT: FromAccountID != nil, MerchantID != nil, ToAccountID == nil
//	WALLET_TOPUP:     ToAccountID != nil, FromAccountID == nil, MerchantID == nil
//
// The constructors below are the only way the engine builds transactions,
// so the shape invariants hold at construction time rather than being
// re-checked on every read.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	TransactionID   string            `json:"transaction_id"`   // TXN-prefixed, unique, client-displayable
	ReferenceNumber string            `json:"reference_number"` // REF-prefixed, unique, external reconciliation
	FromAccountID   *uuid.UUID        `json:"from_account_id,omitempty"`
	ToAccountID     *uuid.UUID        `json:"to_account_id,omitempty"`
	MerchantID      *uuid.UUID        `json:"merchant_id,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Fee             decimal.Decimal   `json:"fee"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Description     *string           `json:"description,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// ValidAmount reports whether amount is a positive money value with at most
// two fractional digits.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// NewPeerTransfer builds a COMPLETED PEER_TRANSFER entry.
func NewPeerTransfer(txnID, refNumber string, fromAccountID, toAccountID uuid.UUID, amount decimal.Decimal, description *string) (*Transaction, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if fromAccountID == toAccountID {
		return nil, ErrSameAccount
	}
	return &Transaction{
		ID:              uuid.New(),
		TransactionID:   txnID,
		ReferenceNumber: refNumber,
		FromAccountID:   &fromAccountID,
		ToAccountID:     &toAccountID,
		Amount:          amount,
		Fee:             decimal.Zero,
		Type:            TransactionTypePeerTransfer,
		Status:          TransactionStatusCompleted,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// NewMerchantPayment builds a COMPLETED MERCHANT_PAYMENT entry.
func NewMerchantPayment(txnID, refNumber string, fromAccountID, merchantID uuid.UUID, amount decimal.Decimal, description *string) (*Transaction, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return &Transaction{
		ID:              uuid.New(),
		TransactionID:   txnID,
		ReferenceNumber: refNumber,
		FromAccountID:   &fromAccountID,
		MerchantID:      &merchantID,
		Amount:          amount,
		Fee:             decimal.Zero,
		Type:            TransactionTypeMerchantPayment,
		Status:          TransactionStatusCompleted,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// NewWalletTopup builds a COMPLETED WALLET_TOPUP entry (credit-only).
func NewWalletTopup(txnID, refNumber string, toAccountID uuid.UUID, amount decimal.Decimal, description *string) (*Transaction, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return &Transaction{
		ID:              uuid.New(),
		TransactionID:   txnID,
		ReferenceNumber: refNumber,
		ToAccountID:     &toAccountID,
		Amount:          amount,
		Fee:             decimal.Zero,
		Type:            TransactionTypeWalletTopup,
		Status:          TransactionStatusCompleted,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
