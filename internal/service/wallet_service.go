package service

import (
	"context"
	"errors"
	"fmt"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService: account lifecycle,
// top-ups and balance reads.
type WalletServiceImpl struct {
	ownerRepo   ports.OwnerRepository
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	idGen       ports.IdentifierGenerator
	retries     int
	log         zerolog.Logger
}

func NewWalletService(
	ownerRepo ports.OwnerRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	idGen ports.IdentifierGenerator,
	retries int,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		ownerRepo:   ownerRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		idGen:       idGen,
		retries:     retries,
		log:         log,
	}
}

// CreateAccount opens the single wallet account for an owner. Owners hold
// exactly one account; a second create attempt is a duplicate.
func (s *WalletServiceImpl) CreateAccount(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	owner, err := s.ownerRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("owner")
	}

	existing, err := s.accountRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicate("account")
	}

	account := domain.NewAccount(ownerID, s.idGen.AccountNumber())

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("owner_id", ownerID.String()).
		Msg("account created")

	return account, nil
}

// AddFunds credits an account and records the top-up in the ledger. Top-ups
// bypass PIN authorization but never bypass the ledger.
func (s *WalletServiceImpl) AddFunds(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrInvalidTransaction("amount must be positive with at most two decimal places")
	}

	conflicts := 0
	regenerated := false
	for {
		account, err := s.executeTopup(ctx, accountID, amount)
		if err == nil {
			return account, nil
		}
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			if regenerated {
				return nil, apperror.ErrIdentifierCollision(err)
			}
			regenerated = true
			continue
		}
		if isRetryableConflict(err) {
			conflicts++
			if conflicts > s.retries {
				return nil, apperror.ErrTransientConflict(err)
			}
			continue
		}
		return nil, err
	}
}

func (s *WalletServiceImpl) executeTopup(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	updated, err := s.accountRepo.ApplyDelta(ctx, dbTx, account.ID, amount, account.Version)
	if err != nil {
		return nil, classifyDeltaError(err)
	}

	txn, err := domain.NewWalletTopup(s.idGen.TransactionID(), s.idGen.ReferenceNumber(), account.ID, amount, nil)
	if err != nil {
		return nil, apperror.ErrInvalidTransaction(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("append ledger: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("transaction_id", txn.TransactionID).
		Str("account_id", account.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("funds added")

	return updated, nil
}

// GetBalance returns the account's current balance.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return decimal.Zero, apperror.ErrNotFound("account")
	}
	return account.Balance, nil
}

// SetDailyLimit replaces the per-transaction ceiling on an account.
func (s *WalletServiceImpl) SetDailyLimit(ctx context.Context, accountID uuid.UUID, limit decimal.Decimal) (*domain.Account, error) {
	if !domain.ValidAmount(limit) {
		return nil, apperror.Validation("daily limit must be positive with at most two decimal places")
	}

	account, err := s.accountRepo.SetDailyLimit(ctx, accountID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, apperror.ErrNotFound("account")
		}
		return nil, apperror.InternalError(fmt.Errorf("set daily limit: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("daily_limit", limit.StringFixed(2)).
		Msg("daily limit updated")

	return account, nil
}
