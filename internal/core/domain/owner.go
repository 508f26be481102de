package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerStatus represents the state of an owner account.
type OwnerStatus string

const (
	OwnerStatusActive   OwnerStatus = "ACTIVE"
	OwnerStatusInactive OwnerStatus = "INACTIVE"
)

// Owner represents the human principal who authorizes operations on an
// Account via a secret PIN. Owners are soft-deactivated, never deleted;
// an inactive owner's account rejects new debits.
type Owner struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number,omitempty"`
	PINHash     string      `json:"-"` // Never expose
	Status      OwnerStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsActive returns true if the owner may authorize debits.
func (o *Owner) IsActive() bool {
	return o.Status == OwnerStatusActive
}
