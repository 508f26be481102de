package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const transactionColumns = `id, transaction_id, reference_number, from_account_id, to_account_id, merchant_id,
		amount, fee, type, status, description, created_at`

// uniqueViolation is the SQLSTATE for duplicate key errors.
const uniqueViolation = "23505"

// TransactionRepo implements ports.TransactionRepository. The ledger is
// append-only: rows are inserted in a terminal state and never touched again.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger row within a database transaction. A duplicate
// generated identifier surfaces as domain.ErrDuplicateIdentifier so the
// orchestrator can regenerate and retry.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, transaction_id, reference_number, from_account_id, to_account_id,
		merchant_id, amount, fee, type, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.TransactionID, t.ReferenceNumber, t.FromAccountID, t.ToAccountID,
		t.MerchantID, t.Amount, t.Fee, t.Type, t.Status, t.Description, t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByTransactionID fetches a ledger entry by its client-facing identifier.
func (r *TransactionRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, transactionID))
}

// GetByReference fetches a ledger entry by its reconciliation reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_number = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, referenceNumber))
}

// ListByAccount fetches transactions touching an account, newest first,
// with optional type and date-range filters (AND semantics when combined).
func (r *TransactionRepo) ListByAccount(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("(from_account_id = $%d OR to_account_id = $%d)", argIdx, argIdx))
	args = append(args, params.AccountID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")
	return r.listPage(ctx, where, args, argIdx, params.Page, params.PageSize)
}

// ListByMerchant fetches a merchant's received payments, newest first.
func (r *TransactionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	return r.listPage(ctx, "WHERE merchant_id = $1", []any{merchantID}, 2, page, pageSize)
}

func (r *TransactionRepo) listPage(ctx context.Context, where string, args []any, argIdx, page, pageSize int) ([]domain.Transaction, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	dataQuery := fmt.Sprintf(`SELECT `+transactionColumns+` FROM transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.TransactionID, &t.ReferenceNumber, &t.FromAccountID, &t.ToAccountID,
			&t.MerchantID, &t.Amount, &t.Fee, &t.Type, &t.Status, &t.Description, &t.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// StatsByAccount aggregates over the account's full ledger. Totals depend
// only on ledger completeness, never on incremental counters.
func (r *TransactionRepo) StatsByAccount(ctx context.Context, accountID uuid.UUID) (*ports.AccountStats, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE from_account_id = $1), 0) AS total_sent,
		COALESCE(SUM(amount) FILTER (WHERE to_account_id = $1), 0) AS total_received,
		COUNT(*) AS total
		FROM transactions WHERE from_account_id = $1 OR to_account_id = $1`

	stats := &ports.AccountStats{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&stats.TotalSent, &stats.TotalReceived, &stats.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("account stats: %w", err)
	}
	return stats, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.TransactionID, &t.ReferenceNumber, &t.FromAccountID, &t.ToAccountID,
		&t.MerchantID, &t.Amount, &t.Fee, &t.Type, &t.Status, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
