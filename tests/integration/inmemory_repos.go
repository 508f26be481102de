package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Owner Repo ---

type inMemoryOwnerRepo struct {
	mu     sync.RWMutex
	owners map[uuid.UUID]*domain.Owner
}

func newInMemoryOwnerRepo() *inMemoryOwnerRepo {
	return &inMemoryOwnerRepo{owners: make(map[uuid.UUID]*domain.Owner)}
}

func (r *inMemoryOwnerRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.owners {
		if existing.Username == o.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *o
	r.owners[o.ID] = &cp
	return nil
}

func (r *inMemoryOwnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOwnerRepo) GetByUsername(ctx context.Context, username string) (*domain.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.owners {
		if o.Username == username {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryOwnerRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	o, _ := r.GetByUsername(ctx, username)
	return o != nil, nil
}

func (r *inMemoryOwnerRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.owners {
		if o.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryOwnerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OwnerStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok {
		return fmt.Errorf("owner not found")
	}
	o.Status = status
	return nil
}

// --- In-Memory Account Repo ---

// inMemoryAccountRepo mirrors the conditional-update semantics of the SQL
// store: ApplyDelta is one atomic check-and-mutate guarded by the expected
// version and the non-negative balance rule.
type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.OwnerID == ownerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if a.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return nil, domain.ErrBalanceExceeded
	}
	a.Balance = next
	a.Version++
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) SetDailyLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.DailyLimit = limit
	cp := *a
	return &cp, nil
}

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) GetByCode(ctx context.Context, merchantCode string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.MerchantCode == merchantCode {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Transaction Repo ---

// inMemoryTransactionRepo is append-only and enforces the same identifier
// uniqueness the SQL ledger does.
type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	entries []domain.Transaction
	byTxnID map[string]struct{}
	byRef   map[string]struct{}
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		byTxnID: make(map[string]struct{}),
		byRef:   make(map[string]struct{}),
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byTxnID[t.TransactionID]; dup {
		return domain.ErrDuplicateIdentifier
	}
	if _, dup := r.byRef[t.ReferenceNumber]; dup {
		return domain.ErrDuplicateIdentifier
	}
	r.byTxnID[t.TransactionID] = struct{}{}
	r.byRef[t.ReferenceNumber] = struct{}{}
	r.entries = append(r.entries, *t)
	return nil
}

func (r *inMemoryTransactionRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].TransactionID == transactionID {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].ReferenceNumber == referenceNumber {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) ListByAccount(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.entries {
		touches := (t.FromAccountID != nil && *t.FromAccountID == params.AccountID) ||
			(t.ToAccountID != nil && *t.ToAccountID == params.AccountID)
		if !touches {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.From != nil && t.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && t.CreatedAt.After(*params.To) {
			continue
		}
		result = append(result, t)
	}
	return paginateNewestFirst(result, params.Page, params.PageSize)
}

func (r *inMemoryTransactionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.entries {
		if t.MerchantID != nil && *t.MerchantID == merchantID {
			result = append(result, t)
		}
	}
	return paginateNewestFirst(result, page, pageSize)
}

func (r *inMemoryTransactionRepo) StatsByAccount(ctx context.Context, accountID uuid.UUID) (*ports.AccountStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.AccountStats{
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
	}
	for _, t := range r.entries {
		touched := false
		if t.FromAccountID != nil && *t.FromAccountID == accountID {
			stats.TotalSent = stats.TotalSent.Add(t.Amount)
			touched = true
		}
		if t.ToAccountID != nil && *t.ToAccountID == accountID {
			stats.TotalReceived = stats.TotalReceived.Add(t.Amount)
			touched = true
		}
		if touched {
			stats.Count++
		}
	}
	return stats, nil
}

func paginateNewestFirst(txns []domain.Transaction, page, pageSize int) ([]domain.Transaction, int64, error) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	total := int64(len(txns))
	start := (page - 1) * pageSize
	if start >= len(txns) {
		return []domain.Transaction{}, total, nil
	}
	end := start + pageSize
	if end > len(txns) {
		end = len(txns)
	}
	return txns[start:end], total, nil
}

// --- In-Memory Attempt Limiter ---

type inMemoryLimiter struct {
	mu       sync.Mutex
	failures map[uuid.UUID]int64
	limit    int64
}

func newInMemoryLimiter(limit int64) *inMemoryLimiter {
	return &inMemoryLimiter{failures: make(map[uuid.UUID]int64), limit: limit}
}

func (l *inMemoryLimiter) Allow(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[ownerID] < l.limit, nil
}

func (l *inMemoryLimiter) RecordFailure(ctx context.Context, ownerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[ownerID]++
	return nil
}

func (l *inMemoryLimiter) Reset(ctx context.Context, ownerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, ownerID)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

// inMemoryTransactor hands out no-op transactions: the in-memory repos
// mutate immediately and cannot revert on rollback. The harness therefore
// only supports retry paths where the conflict strikes before any delta was
// applied (the first ApplyDelta of a unit of work). Scenarios that would
// retry after a mutation, such as a forced identifier collision, would
// double-apply deltas here and belong in the service tests, where a
// tracking pgx.Tx stub asserts the rollback instead.
type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
