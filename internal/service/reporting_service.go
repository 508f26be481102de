package service

import (
	"context"
	"fmt"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ReportingServiceImpl implements ports.ReportingService: the read-only
// query and stats surface over the ledger.
type ReportingServiceImpl struct {
	accountRepo  ports.AccountRepository
	merchantRepo ports.MerchantRepository
	txRepo       ports.TransactionRepository
	log          zerolog.Logger
}

func NewReportingService(
	accountRepo ports.AccountRepository,
	merchantRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	log zerolog.Logger,
) *ReportingServiceImpl {
	return &ReportingServiceImpl{
		accountRepo:  accountRepo,
		merchantRepo: merchantRepo,
		txRepo:       txRepo,
		log:          log,
	}
}

// GetTransaction fetches a ledger entry by its TXN identifier.
func (s *ReportingServiceImpl) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// GetTransactionByReference fetches a ledger entry by its REF number.
func (s *ReportingServiceImpl) GetTransactionByReference(ctx context.Context, referenceNumber string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, referenceNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// ListTransactions returns a page of the account's ledger entries, newest
// first, with the total count across all pages.
func (s *ReportingServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	account, err := s.accountRepo.GetByID(ctx, params.AccountID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, 0, apperror.ErrNotFound("account")
	}

	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)

	txns, total, err := s.txRepo.ListByAccount(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// ListMerchantTransactions returns a page of payments received by a
// merchant, newest first.
func (s *ReportingServiceImpl) ListMerchantTransactions(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, 0, apperror.ErrNotFound("merchant")
	}

	page, pageSize = normalizePage(page, pageSize)

	txns, total, err := s.txRepo.ListByMerchant(ctx, merchantID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list merchant transactions: %w", err))
	}
	return txns, total, nil
}

// GetAccountStats aggregates sent/received totals over the account's full
// ledger history.
func (s *ReportingServiceImpl) GetAccountStats(ctx context.Context, accountID uuid.UUID) (*ports.AccountStats, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	stats, err := s.txRepo.StatsByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("account stats: %w", err))
	}
	return stats, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
