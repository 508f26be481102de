package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var pinFormat = regexp.MustCompile(`^[0-9]{4,6}$`)

// IdentityServiceImpl implements ports.IdentityService: owner registration
// and lifecycle. Registration opens the owner's wallet account in the same
// unit of work, so an owner without an account is never observable.
type IdentityServiceImpl struct {
	ownerRepo   ports.OwnerRepository
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	hashSvc     ports.HashService
	idGen       ports.IdentifierGenerator
	log         zerolog.Logger
}

func NewIdentityService(
	ownerRepo ports.OwnerRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	hashSvc ports.HashService,
	idGen ports.IdentifierGenerator,
	log zerolog.Logger,
) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		ownerRepo:   ownerRepo,
		accountRepo: accountRepo,
		transactor:  transactor,
		hashSvc:     hashSvc,
		idGen:       idGen,
		log:         log,
	}
}

// RegisterOwner creates a new owner plus their wallet account.
func (s *IdentityServiceImpl) RegisterOwner(ctx context.Context, req ports.RegisterOwnerRequest) (*domain.Owner, *domain.Account, error) {
	if req.Username == "" {
		return nil, nil, apperror.Validation("username is required")
	}
	if req.Email == "" {
		return nil, nil, apperror.Validation("email is required")
	}
	if !pinFormat.MatchString(req.PIN) {
		return nil, nil, apperror.Validation("pin must be 4 to 6 digits")
	}

	taken, err := s.ownerRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if taken {
		return nil, nil, apperror.ErrDuplicate("username")
	}
	taken, err = s.ownerRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if taken {
		return nil, nil, apperror.ErrDuplicate("email")
	}

	pinHash, err := s.hashSvc.Hash(req.PIN)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}

	now := time.Now().UTC()
	owner := &domain.Owner{
		ID:          uuid.New(),
		Username:    req.Username,
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		PINHash:     pinHash,
		Status:      domain.OwnerStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	account := domain.NewAccount(owner.ID, s.idGen.AccountNumber())

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.ownerRepo.Create(ctx, dbTx, owner); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create owner: %w", err))
	}
	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("owner_id", owner.ID.String()).
		Str("username", owner.Username).
		Str("account_number", account.AccountNumber).
		Msg("owner registered")

	return owner, account, nil
}

// GetOwner fetches an owner by id.
func (s *IdentityServiceImpl) GetOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	owner, err := s.ownerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("owner")
	}
	return owner, nil
}

// GetOwnerByUsername fetches an owner by username.
func (s *IdentityServiceImpl) GetOwnerByUsername(ctx context.Context, username string) (*domain.Owner, error) {
	owner, err := s.ownerRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("owner")
	}
	return owner, nil
}

// DeactivateOwner soft-deactivates an owner. Their account stops accepting
// debits but keeps receiving credits and stays queryable.
func (s *IdentityServiceImpl) DeactivateOwner(ctx context.Context, id uuid.UUID) error {
	owner, err := s.ownerRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return apperror.ErrNotFound("owner")
	}

	if err := s.ownerRepo.UpdateStatus(ctx, id, domain.OwnerStatusInactive); err != nil {
		return apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	s.log.Info().Str("owner_id", id.String()).Msg("owner deactivated")
	return nil
}
