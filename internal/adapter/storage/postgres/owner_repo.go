package postgres

import (
	"context"
	"errors"
	"fmt"

	"digital-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ownerColumns = `id, username, email, full_name, phone_number, pin_hash, status, created_at, updated_at`

// OwnerRepo implements ports.OwnerRepository.
type OwnerRepo struct {
	pool Pool
}

// NewOwnerRepo creates a new OwnerRepo.
func NewOwnerRepo(pool Pool) *OwnerRepo {
	return &OwnerRepo{pool: pool}
}

// Create inserts a new owner within a database transaction, so registration
// can create the owner and the zero-balance account atomically.
func (r *OwnerRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Owner) error {
	query := `INSERT INTO owners (id, username, email, full_name, phone_number, pin_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		o.ID, o.Username, o.Email, o.FullName, o.PhoneNumber,
		o.PINHash, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}

// GetByID fetches an owner by UUID.
func (r *OwnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = $1`
	return scanOwner(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches an owner by username.
func (r *OwnerRepo) GetByUsername(ctx context.Context, username string) (*domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE username = $1`
	return scanOwner(r.pool.QueryRow(ctx, query, username))
}

// ExistsByUsername reports whether a username is taken.
func (r *OwnerRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

// ExistsByEmail reports whether an email is taken.
func (r *OwnerRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// UpdateStatus soft-(de)activates an owner. Owner rows are never deleted.
func (r *OwnerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OwnerStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE owners SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update owner status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("owner not found: %s", id)
	}
	return nil
}

func scanOwner(row pgx.Row) (*domain.Owner, error) {
	o := &domain.Owner{}
	err := row.Scan(
		&o.ID, &o.Username, &o.Email, &o.FullName, &o.PhoneNumber,
		&o.PINHash, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	return o, nil
}
