package postgres

import (
	"context"
	"errors"
	"fmt"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, account_number, balance, daily_limit, version, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account within a database transaction.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (id, owner_id, account_number, balance, daily_limit, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.OwnerID, a.AccountNumber, a.Balance,
		a.DailyLimit, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByOwnerID fetches the account belonging to an owner (non-locking read).
func (r *AccountRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, ownerID))
}

// GetByIDForUpdate fetches an account with a pessimistic row lock.
// This MUST be called within a transaction. Multi-account operations must
// acquire locks in ascending account-id order.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// ApplyDelta adjusts the balance by delta as one conditional update. The
// guard clause keeps a negative balance from ever being persisted, whatever
// the caller computed. On the zero-rows case the cause is classified by a
// follow-up read inside the same transaction.
func (r *AccountRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error) {
	query := `UPDATE accounts
		SET balance = balance + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3 AND balance + $2 >= 0
		RETURNING ` + accountColumns

	a := &domain.Account{}
	err := tx.QueryRow(ctx, query, id, delta, expectedVersion).Scan(
		&a.ID, &a.OwnerID, &a.AccountNumber, &a.Balance,
		&a.DailyLimit, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("apply delta: %w", err)
	}

	var version int64
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT version, balance FROM accounts WHERE id = $1`, id).Scan(&version, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("classify rejected delta: %w", err)
	}
	if version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	return nil, domain.ErrBalanceExceeded
}

// SetDailyLimit updates the per-transaction ceiling.
func (r *AccountRepo) SetDailyLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) (*domain.Account, error) {
	query := `UPDATE accounts SET daily_limit = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + accountColumns

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id, limit).Scan(
		&a.ID, &a.OwnerID, &a.AccountNumber, &a.Balance,
		&a.DailyLimit, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("set daily limit: %w", err)
	}
	return a, nil
}

// scanAccount is a helper to scan a single row into an Account.
// Returns (nil, nil) when no row matches, following the repo convention.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.AccountNumber, &a.Balance,
		&a.DailyLimit, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
