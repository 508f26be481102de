package postgres

import (
	"context"
	"testing"
	"time"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOwner() *domain.Owner {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Owner{
		ID:          uuid.New(),
		Username:    "alice",
		Email:       "alice@example.com",
		FullName:    "Alice Nguyen",
		PhoneNumber: "0901234567",
		PINHash:     "$2a$10$hashedpin",
		Status:      domain.OwnerStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ownerCols() []string {
	return []string{"id", "username", "email", "full_name", "phone_number", "pin_hash", "status", "created_at", "updated_at"}
}

func ownerRow(o *domain.Owner) *pgxmock.Rows {
	return pgxmock.NewRows(ownerCols()).AddRow(
		o.ID, o.Username, o.Email, o.FullName, o.PhoneNumber,
		o.PINHash, o.Status, o.CreatedAt, o.UpdatedAt,
	)
}

func TestOwnerRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	o := newTestOwner()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO owners").
		WithArgs(o.ID, o.Username, o.Email, o.FullName, o.PhoneNumber,
			o.PINHash, o.Status, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, o)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	o := newTestOwner()

	mock.ExpectQuery("SELECT .+ FROM owners WHERE username").
		WithArgs(o.Username).
		WillReturnRows(ownerRow(o))

	result, err := repo.GetByUsername(context.Background(), o.Username)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.ID, result.ID)
	assert.Equal(t, o.PINHash, result.PINHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_GetByUsername_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM owners WHERE username").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByUsername(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_ExistsByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_ExistsByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("free@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsByEmail(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE owners SET status").
		WithArgs(id, domain.OwnerStatusInactive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateStatus(context.Background(), id, domain.OwnerStatusInactive)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnerRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE owners SET status").
		WithArgs(id, domain.OwnerStatusInactive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), id, domain.OwnerStatusInactive)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
