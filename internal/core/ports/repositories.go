package ports

import (
	"context"
	"time"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OwnerRepository defines persistence operations for account owners.
type OwnerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, owner *domain.Owner) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error)
	GetByUsername(ctx context.Context, username string) (*domain.Owner, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OwnerStatus) error
}

// AccountRepository defines persistence operations for wallet accounts.
// Methods accepting pgx.Tx run inside transaction blocks; GetByIDForUpdate
// takes a row lock and MUST be called within a transaction.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// ApplyDelta atomically adjusts the balance by delta (negative for
	// debits) as a single conditional update guarded by the expected row
	// version and by `balance + delta >= 0`. On the zero-rows case it
	// classifies the cause: domain.ErrAccountNotFound,
	// domain.ErrVersionConflict or domain.ErrBalanceExceeded.
	ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error)
	SetDailyLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) (*domain.Account, error)
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error)
}

// TransactionRepository is the append-only ledger. No update or delete
// exists in this contract: every balance change stays reconstructable.
type TransactionRepository interface {
	// Create appends a ledger row within a database transaction. A unique
	// violation on transaction_id or reference_number is returned as
	// domain.ErrDuplicateIdentifier.
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	// StatsByAccount aggregates over the account's full (unpaged) ledger.
	StatsByAccount(ctx context.Context, accountID uuid.UUID) (*AccountStats, error)
}

// TransactionListParams holds filters + pagination for ledger queries.
// Type and date-range filters are independently optional; when both are
// set, both constraints apply.
type TransactionListParams struct {
	AccountID uuid.UUID
	Type      *domain.TransactionType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// AccountStats holds ledger aggregates for one account.
type AccountStats struct {
	TotalSent     decimal.Decimal `json:"total_sent"`
	TotalReceived decimal.Decimal `json:"total_received"`
	Count         int64           `json:"count"`
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
