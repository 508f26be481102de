package postgres

import (
	"context"
	"testing"
	"time"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(ownerID uuid.UUID) *domain.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Account{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		AccountNumber: "WAL0123456789",
		Balance:       decimal.RequireFromString("100.00"),
		DailyLimit:    domain.DefaultDailyLimit,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func accountCols() []string {
	return []string{"id", "owner_id", "account_number", "balance", "daily_limit", "version", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountCols()).AddRow(
		a.ID, a.OwnerID, a.AccountNumber, a.Balance,
		a.DailyLimit, a.Version, a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.ID, a.OwnerID, a.AccountNumber, a.Balance,
			a.DailyLimit, a.Version, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, a)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(a.ID).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.True(t, result.Balance.Equal(a.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE id .+ FOR UPDATE").
		WithArgs(a.ID).
		WillReturnRows(accountRow(a))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), dbTx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ApplyDelta_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(uuid.New())
	delta := decimal.RequireFromString("-30.00")

	updated := *a
	updated.Balance = decimal.RequireFromString("70.00")
	updated.Version = 2

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(a.ID, delta, a.Version).
		WillReturnRows(accountRow(&updated))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ApplyDelta(context.Background(), dbTx, a.ID, delta, a.Version)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Balance.Equal(decimal.RequireFromString("70.00")))
	assert.Equal(t, int64(2), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ApplyDelta_AccountNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()
	delta := decimal.RequireFromString("-30.00")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(id, delta, int64(1)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT version, balance FROM accounts").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ApplyDelta(context.Background(), dbTx, id, delta, 1)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ApplyDelta_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()
	delta := decimal.RequireFromString("-30.00")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(id, delta, int64(1)).
		WillReturnError(pgx.ErrNoRows)
	// The row exists but was bumped to version 2 by a concurrent writer.
	mock.ExpectQuery("SELECT version, balance FROM accounts").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"version", "balance"}).
			AddRow(int64(2), decimal.RequireFromString("100.00")))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ApplyDelta(context.Background(), dbTx, id, delta, 1)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_ApplyDelta_BalanceExceeded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()
	delta := decimal.RequireFromString("-500.00")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(id, delta, int64(1)).
		WillReturnError(pgx.ErrNoRows)
	// Version matches, so the only remaining cause is the balance guard.
	mock.ExpectQuery("SELECT version, balance FROM accounts").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"version", "balance"}).
			AddRow(int64(1), decimal.RequireFromString("100.00")))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.ApplyDelta(context.Background(), dbTx, id, delta, 1)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrBalanceExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SetDailyLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount(uuid.New())
	limit := decimal.RequireFromString("500.00")

	updated := *a
	updated.DailyLimit = limit

	mock.ExpectQuery("UPDATE accounts SET daily_limit").
		WithArgs(a.ID, limit).
		WillReturnRows(accountRow(&updated))

	result, err := repo.SetDailyLimit(context.Background(), a.ID, limit)
	require.NoError(t, err)
	assert.True(t, result.DailyLimit.Equal(limit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_SetDailyLimit_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	id := uuid.New()
	limit := decimal.RequireFromString("500.00")

	mock.ExpectQuery("UPDATE accounts SET daily_limit").
		WithArgs(id, limit).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.SetDailyLimit(context.Background(), id, limit)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
