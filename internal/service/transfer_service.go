package service

import (
	"context"
	"errors"
	"fmt"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransferServiceImpl implements ports.TransferService: the fund-movement
// orchestrator for peer transfers and merchant payments.
//
// Every balance mutation runs inside one database transaction: row locks
// taken in ascending account-id order, version-checked deltas, ledger
// append, commit. Anything short of commit leaves no observable trace.
type TransferServiceImpl struct {
	ownerRepo    ports.OwnerRepository
	accountRepo  ports.AccountRepository
	merchantRepo ports.MerchantRepository
	txRepo       ports.TransactionRepository
	transactor   ports.DBTransactor
	hashSvc      ports.HashService
	idGen        ports.IdentifierGenerator
	limiter      ports.AttemptLimiter
	retries      int
	log          zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl. retries bounds the
// internal re-execution of a mutation after a concurrency conflict.
func NewTransferService(
	ownerRepo ports.OwnerRepository,
	accountRepo ports.AccountRepository,
	merchantRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	hashSvc ports.HashService,
	idGen ports.IdentifierGenerator,
	limiter ports.AttemptLimiter,
	retries int,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		ownerRepo:    ownerRepo,
		accountRepo:  accountRepo,
		merchantRepo: merchantRepo,
		txRepo:       txRepo,
		transactor:   transactor,
		hashSvc:      hashSvc,
		idGen:        idGen,
		limiter:      limiter,
		retries:      retries,
		log:          log,
	}
}

// Transfer moves funds between two accounts, resolving the destination by
// owner username.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidTransaction("amount must be positive with at most two decimal places")
	}

	from, err := s.accountRepo.GetByID(ctx, req.FromAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get source account: %w", err))
	}
	if from == nil {
		return nil, apperror.ErrNotFound("account")
	}

	toOwner, err := s.ownerRepo.GetByUsername(ctx, req.ToUsername)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient: %w", err))
	}
	if toOwner == nil {
		return nil, apperror.ErrNotFound("recipient")
	}
	toAccount, err := s.accountRepo.GetByOwnerID(ctx, toOwner.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient account: %w", err))
	}
	if toAccount == nil {
		return nil, apperror.ErrNotFound("recipient account")
	}

	if err := s.authorizeDebit(ctx, from.OwnerID, req.PIN); err != nil {
		return nil, err
	}

	if from.ID == toAccount.ID {
		return nil, apperror.ErrInvalidTransaction("cannot transfer to self")
	}
	if !from.WithinDailyLimit(req.Amount) {
		return nil, apperror.ErrInvalidTransaction("amount exceeds daily limit")
	}
	// Advisory read; the authoritative check happens under the row lock.
	if !from.HasSufficientBalance(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	txn, err := s.runMovement(ctx, func() (*domain.Transaction, error) {
		return s.executeTransfer(ctx, from.ID, toAccount.ID, req.Amount, req.Description)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", txn.TransactionID).
		Str("from_account", from.ID.String()).
		Str("to_account", toAccount.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("transfer completed")

	return txn, nil
}

// PayMerchant debits a single account against a merchant resolved by code.
func (s *TransferServiceImpl) PayMerchant(ctx context.Context, req ports.MerchantPaymentRequest) (*domain.Transaction, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidTransaction("amount must be positive with at most two decimal places")
	}

	from, err := s.accountRepo.GetByID(ctx, req.FromAccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get source account: %w", err))
	}
	if from == nil {
		return nil, apperror.ErrNotFound("account")
	}

	merchant, err := s.merchantRepo.GetByCode(ctx, req.MerchantCode)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil || !merchant.IsActive() {
		return nil, apperror.ErrNotFound("merchant")
	}

	if err := s.authorizeDebit(ctx, from.OwnerID, req.PIN); err != nil {
		return nil, err
	}

	if !from.WithinDailyLimit(req.Amount) {
		return nil, apperror.ErrInvalidTransaction("amount exceeds daily limit")
	}
	if !from.HasSufficientBalance(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	txn, err := s.runMovement(ctx, func() (*domain.Transaction, error) {
		return s.executePayment(ctx, from.ID, merchant.ID, req.Amount, req.Description)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", txn.TransactionID).
		Str("from_account", from.ID.String()).
		Str("merchant_code", merchant.MerchantCode).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("merchant payment completed")

	return txn, nil
}

// authorizeDebit verifies the owner's PIN behind the attempt limiter and
// confirms the owner may still authorize debits. The error it returns never
// reveals which check failed beyond the broad taxonomy.
func (s *TransferServiceImpl) authorizeDebit(ctx context.Context, ownerID uuid.UUID, pin string) error {
	owner, err := s.ownerRepo.GetByID(ctx, ownerID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return apperror.ErrNotFound("account owner")
	}

	allowed, err := s.limiter.Allow(ctx, owner.ID)
	if err != nil {
		// Limiter is best-effort: a broken counter must not block legitimate
		// owners, the PIN check below still gates the debit.
		s.log.Warn().Err(err).Str("owner_id", owner.ID.String()).Msg("attempt limiter unavailable")
	} else if !allowed {
		return apperror.ErrTooManyAuthAttempts()
	}

	ok, err := s.hashSvc.Verify(pin, owner.PINHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !ok {
		if err := s.limiter.RecordFailure(ctx, owner.ID); err != nil {
			s.log.Warn().Err(err).Str("owner_id", owner.ID.String()).Msg("failed to record pin failure")
		}
		return apperror.ErrInvalidAuthorization()
	}
	if err := s.limiter.Reset(ctx, owner.ID); err != nil {
		s.log.Warn().Err(err).Str("owner_id", owner.ID.String()).Msg("failed to reset pin failures")
	}

	if !owner.IsActive() {
		return apperror.ErrInvalidTransaction("account owner is inactive")
	}
	return nil
}

// runMovement re-executes a balance mutation after concurrency conflicts,
// bounded by the configured retry budget, and allows exactly one identifier
// regeneration when the ledger reports a collision.
func (s *TransferServiceImpl) runMovement(ctx context.Context, execute func() (*domain.Transaction, error)) (*domain.Transaction, error) {
	conflicts := 0
	regenerated := false
	for {
		txn, err := execute()
		if err == nil {
			return txn, nil
		}
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			if regenerated {
				return nil, apperror.ErrIdentifierCollision(err)
			}
			regenerated = true
			s.log.Warn().Msg("transaction identifier collision, regenerating")
			continue
		}
		if isRetryableConflict(err) {
			conflicts++
			if conflicts > s.retries {
				return nil, apperror.ErrTransientConflict(err)
			}
			s.log.Warn().Err(err).Int("attempt", conflicts).Msg("fund movement conflicted, retrying")
			continue
		}
		return nil, err
	}
}

func (s *TransferServiceImpl) executeTransfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description *string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	from, to, err := s.lockPair(ctx, dbTx, fromID, toID)
	if err != nil {
		return nil, err
	}

	// Authoritative balance check, now that the row cannot move under us.
	if !from.HasSufficientBalance(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.accountRepo.ApplyDelta(ctx, dbTx, from.ID, amount.Neg(), from.Version); err != nil {
		return nil, classifyDeltaError(err)
	}
	if _, err := s.accountRepo.ApplyDelta(ctx, dbTx, to.ID, amount, to.Version); err != nil {
		return nil, classifyDeltaError(err)
	}

	txn, err := domain.NewPeerTransfer(s.idGen.TransactionID(), s.idGen.ReferenceNumber(), from.ID, to.ID, amount, description)
	if err != nil {
		return nil, apperror.ErrInvalidTransaction(err.Error())
	}
	if err := s.appendLedger(ctx, dbTx, txn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return txn, nil
}

func (s *TransferServiceImpl) executePayment(ctx context.Context, fromID, merchantID uuid.UUID, amount decimal.Decimal, description *string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	from, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, fromID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if from == nil {
		return nil, apperror.ErrNotFound("account")
	}

	if !from.HasSufficientBalance(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.accountRepo.ApplyDelta(ctx, dbTx, from.ID, amount.Neg(), from.Version); err != nil {
		return nil, classifyDeltaError(err)
	}

	txn, err := domain.NewMerchantPayment(s.idGen.TransactionID(), s.idGen.ReferenceNumber(), from.ID, merchantID, amount, description)
	if err != nil {
		return nil, apperror.ErrInvalidTransaction(err.Error())
	}
	if err := s.appendLedger(ctx, dbTx, txn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return txn, nil
}

// lockPair acquires both row locks in ascending account-id order, whatever
// the debit/credit direction, so two opposing transfers cannot deadlock.
func (s *TransferServiceImpl) lockPair(ctx context.Context, dbTx pgx.Tx, fromID, toID uuid.UUID) (from, to *domain.Account, err error) {
	first, second := fromID, toID
	if lessUUID(second, first) {
		first, second = second, first
	}

	a1, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, first)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	a2, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, second)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if a1 == nil || a2 == nil {
		return nil, nil, apperror.ErrNotFound("account")
	}

	if a1.ID == fromID {
		return a1, a2, nil
	}
	return a2, a1, nil
}

// appendLedger inserts the transaction row, surfacing identifier collisions
// as domain.ErrDuplicateIdentifier for runMovement to handle.
func (s *TransferServiceImpl) appendLedger(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	err := s.txRepo.Create(ctx, dbTx, txn)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrDuplicateIdentifier) {
		return err
	}
	return apperror.InternalError(fmt.Errorf("append ledger: %w", err))
}

func lessUUID(a, b uuid.UUID) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// classifyDeltaError maps storage sentinels onto the caller-facing
// taxonomy. Version conflicts pass through untyped so runMovement can
// re-execute the whole unit of work.
func classifyDeltaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return apperror.ErrNotFound("account")
	case errors.Is(err, domain.ErrBalanceExceeded):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrVersionConflict):
		return err
	default:
		return apperror.InternalError(fmt.Errorf("apply delta: %w", err))
	}
}

// isRetryableConflict reports whether the unit of work may be re-executed:
// optimistic version conflicts plus the store's serialization, deadlock and
// lock-wait-timeout failures. Nothing else is retried internally.
func isRetryableConflict(err error) bool {
	if errors.Is(err, domain.ErrVersionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}
