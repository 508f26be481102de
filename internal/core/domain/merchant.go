package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant.
type MerchantStatus string

const (
	MerchantStatusActive   MerchantStatus = "ACTIVE"
	MerchantStatusInactive MerchantStatus = "INACTIVE"
)

// Merchant is a payment destination identified by its merchant code.
// No balance is tracked for merchants in this engine; settlement to
// merchants is an external process.
type Merchant struct {
	ID           uuid.UUID      `json:"id"`
	MerchantCode string         `json:"merchant_code"` // MER-prefixed, unique
	MerchantName string         `json:"merchant_name"`
	Email        string         `json:"email"`
	Category     string         `json:"category,omitempty"`
	Status       MerchantStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant can receive payments.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
