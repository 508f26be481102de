package ports

import (
	"context"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HashService handles one-way PIN hashing. Implementations must use a slow,
// salted hash; verification failure is a boolean result, not an error.
type HashService interface {
	Hash(pin string) (string, error)
	Verify(pin string, hash string) (bool, error)
}

// IdentifierGenerator mints collision-resistant identifiers. Collisions are
// statistically negligible but the ledger still enforces uniqueness; the
// orchestrators regenerate once on a detected collision.
type IdentifierGenerator interface {
	TransactionID() string
	ReferenceNumber() string
	AccountNumber() string
	MerchantCode() string
}

// AttemptLimiter tracks failed PIN verifications per owner so repeated
// guessing can be refused before the hash comparison runs.
type AttemptLimiter interface {
	// Allow reports whether the owner is still under the failure threshold.
	Allow(ctx context.Context, ownerID uuid.UUID) (bool, error)
	RecordFailure(ctx context.Context, ownerID uuid.UUID) error
	Reset(ctx context.Context, ownerID uuid.UUID) error
}

// --- Service Ports (Business Logic) ---

// TransferService is the fund-movement engine surface for debits.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	PayMerchant(ctx context.Context, req MerchantPaymentRequest) (*domain.Transaction, error)
}

// TransferRequest holds validated input for a peer-to-peer transfer.
type TransferRequest struct {
	FromAccountID uuid.UUID
	ToUsername    string
	Amount        decimal.Decimal
	Description   *string
	PIN           string
}

// MerchantPaymentRequest holds validated input for a merchant payment.
type MerchantPaymentRequest struct {
	FromAccountID uuid.UUID
	MerchantCode  string
	Amount        decimal.Decimal
	Description   *string
	PIN           string
}

// WalletService manages account lifecycle and credit-only operations.
type WalletService interface {
	CreateAccount(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	// AddFunds credits the account and appends a WALLET_TOPUP ledger row in
	// one unit of work. No authorization check: hardening is the caller's
	// policy decision.
	AddFunds(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	SetDailyLimit(ctx context.Context, accountID uuid.UUID, limit decimal.Decimal) (*domain.Account, error)
}

// IdentityService manages owner registration and status.
type IdentityService interface {
	RegisterOwner(ctx context.Context, req RegisterOwnerRequest) (*domain.Owner, *domain.Account, error)
	GetOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	GetOwnerByUsername(ctx context.Context, username string) (*domain.Owner, error)
	DeactivateOwner(ctx context.Context, id uuid.UUID) error
}

// RegisterOwnerRequest holds input for owner registration.
type RegisterOwnerRequest struct {
	Username    string
	Email       string
	FullName    string
	PhoneNumber string
	PIN         string
}

// MerchantService manages the merchant directory.
type MerchantService interface {
	RegisterMerchant(ctx context.Context, req RegisterMerchantRequest) (*domain.Merchant, error)
	GetMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error)
}

// RegisterMerchantRequest holds input for merchant registration.
type RegisterMerchantRequest struct {
	MerchantName string
	Email        string
	Category     string
}

// ReportingService is the read-only query/stats surface over the ledger.
type ReportingService interface {
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListMerchantTransactions(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	GetAccountStats(ctx context.Context, accountID uuid.UUID) (*AccountStats, error)
}
