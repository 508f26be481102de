package integration

import (
	"context"
	"testing"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/internal/service"
	"digital-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPIN         = "1234"
	wrongPIN        = "9999"
	pinAttemptLimit = 3
)

// engine wires every service over in-memory adapters. Real bcrypt hashing
// and real identifier generation; only the storage and limiter are faked.
type engine struct {
	identity  ports.IdentityService
	wallet    ports.WalletService
	transfer  ports.TransferService
	merchant  ports.MerchantService
	reporting ports.ReportingService

	accountRepo *inMemoryAccountRepo
}

func newEngine(t *testing.T, conflictRetries int) *engine {
	t.Helper()

	ownerRepo := newInMemoryOwnerRepo()
	accountRepo := newInMemoryAccountRepo()
	merchantRepo := newInMemoryMerchantRepo()
	txRepo := newInMemoryTransactionRepo()
	transactor := newInMemoryTransactor()
	limiter := newInMemoryLimiter(pinAttemptLimit)
	hashSvc := service.NewBcryptHashServiceWithCost(bcrypt.MinCost)
	idGen := service.NewUUIDIdentifierGenerator()
	log := zerolog.Nop()

	return &engine{
		identity:  service.NewIdentityService(ownerRepo, accountRepo, transactor, hashSvc, idGen, log),
		wallet:    service.NewWalletService(ownerRepo, accountRepo, txRepo, transactor, idGen, conflictRetries, log),
		transfer:  service.NewTransferService(ownerRepo, accountRepo, merchantRepo, txRepo, transactor, hashSvc, idGen, limiter, conflictRetries, log),
		merchant:  service.NewMerchantService(merchantRepo, idGen, log),
		reporting: service.NewReportingService(accountRepo, merchantRepo, txRepo, log),

		accountRepo: accountRepo,
	}
}

// registerFunded registers an owner and credits the opening balance.
func (e *engine) registerFunded(t *testing.T, username string, balance string) (*domain.Owner, *domain.Account) {
	t.Helper()
	ctx := context.Background()

	owner, account, err := e.identity.RegisterOwner(ctx, ports.RegisterOwnerRequest{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
		PIN:      testPIN,
	})
	require.NoError(t, err)

	amount := decimal.RequireFromString(balance)
	if amount.IsPositive() {
		updated, err := e.wallet.AddFunds(ctx, account.ID, amount)
		require.NoError(t, err)
		account = updated
	}
	return owner, account
}

func TestEngine_RegisterTopupTransfer(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "100.00")
	_, bobAcc := e.registerFunded(t, "bob", "0")

	txn, err := e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("40.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Equal(t, domain.TransactionTypePeerTransfer, txn.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.FromAccountID)
	require.NotNil(t, txn.ToAccountID)
	assert.Equal(t, aliceAcc.ID, *txn.FromAccountID)
	assert.Equal(t, bobAcc.ID, *txn.ToAccountID)

	aliceBalance, err := e.wallet.GetBalance(ctx, aliceAcc.ID)
	require.NoError(t, err)
	assert.True(t, aliceBalance.Equal(decimal.RequireFromString("60.00")),
		"alice balance = %s", aliceBalance)

	bobBalance, err := e.wallet.GetBalance(ctx, bobAcc.ID)
	require.NoError(t, err)
	assert.True(t, bobBalance.Equal(decimal.RequireFromString("40.00")),
		"bob balance = %s", bobBalance)

	// The ledger row is findable by both identifiers.
	byID, err := e.reporting.GetTransaction(ctx, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byID.ID)

	byRef, err := e.reporting.GetTransactionByReference(ctx, txn.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byRef.ID)
}

func TestEngine_InsufficientFunds(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "10.00")
	e.registerFunded(t, "bob", "0")

	_, err := e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("10.01"),
		PIN:           testPIN,
	})
	require.Error(t, err)
	assert.Equal(t, "PAY_001", apperror.Code(err))

	// Failed attempts leave no ledger row and no balance movement.
	balance, err := e.wallet.GetBalance(ctx, aliceAcc.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10.00")))

	_, total, err := e.reporting.ListTransactions(ctx, ports.TransactionListParams{AccountID: aliceAcc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "only the topup should be on the ledger")
}

func TestEngine_PINLockout(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "100.00")
	e.registerFunded(t, "bob", "0")

	req := ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("1.00"),
		PIN:           wrongPIN,
	}

	for i := 0; i < pinAttemptLimit; i++ {
		_, err := e.transfer.Transfer(ctx, req)
		require.Error(t, err)
		assert.Equal(t, "AUTH_001", apperror.Code(err), "attempt %d", i+1)
	}

	// Threshold reached: even the correct PIN is refused now.
	req.PIN = testPIN
	_, err := e.transfer.Transfer(ctx, req)
	require.Error(t, err)
	assert.Equal(t, "AUTH_002", apperror.Code(err))
}

func TestEngine_PINResetAfterSuccess(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "100.00")
	e.registerFunded(t, "bob", "0")

	req := ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("1.00"),
		PIN:           wrongPIN,
	}

	// Two failures, then a success clears the counter.
	for i := 0; i < 2; i++ {
		_, err := e.transfer.Transfer(ctx, req)
		require.Error(t, err)
	}
	req.PIN = testPIN
	_, err := e.transfer.Transfer(ctx, req)
	require.NoError(t, err)

	// The failure budget is full again.
	req.PIN = wrongPIN
	for i := 0; i < pinAttemptLimit; i++ {
		_, err := e.transfer.Transfer(ctx, req)
		require.Error(t, err)
		assert.Equal(t, "AUTH_001", apperror.Code(err))
	}
}

func TestEngine_MerchantPayment(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "100.00")

	merchant, err := e.merchant.RegisterMerchant(ctx, ports.RegisterMerchantRequest{
		MerchantName: "Coffee Corner",
		Email:        "coffee@example.com",
		Category:     "food",
	})
	require.NoError(t, err)
	require.NotEmpty(t, merchant.MerchantCode)

	txn, err := e.transfer.PayMerchant(ctx, ports.MerchantPaymentRequest{
		FromAccountID: aliceAcc.ID,
		MerchantCode:  merchant.MerchantCode,
		Amount:        decimal.RequireFromString("4.50"),
		PIN:           testPIN,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeMerchantPayment, txn.Type)
	require.NotNil(t, txn.MerchantID)
	assert.Equal(t, merchant.ID, *txn.MerchantID)
	assert.Nil(t, txn.ToAccountID)

	balance, err := e.wallet.GetBalance(ctx, aliceAcc.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("95.50")))

	txns, total, err := e.reporting.ListMerchantTransactions(ctx, merchant.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.TransactionID, txns[0].TransactionID)
}

func TestEngine_DeactivatedOwnerCannotDebitButCanReceive(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	alice, aliceAcc := e.registerFunded(t, "alice", "50.00")
	_, bobAcc := e.registerFunded(t, "bob", "50.00")

	require.NoError(t, e.identity.DeactivateOwner(ctx, alice.ID))

	// Debits from the deactivated owner are refused.
	_, err := e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("5.00"),
		PIN:           testPIN,
	})
	require.Error(t, err)
	assert.Equal(t, "PAY_002", apperror.Code(err))

	// Credits to the deactivated owner still land.
	_, err = e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: bobAcc.ID,
		ToUsername:    "alice",
		Amount:        decimal.RequireFromString("5.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)

	balance, err := e.wallet.GetBalance(ctx, aliceAcc.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("55.00")))
}

func TestEngine_DailyLimitCeiling(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "500.00")
	e.registerFunded(t, "bob", "0")

	_, err := e.wallet.SetDailyLimit(ctx, aliceAcc.ID, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	_, err = e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("100.01"),
		PIN:           testPIN,
	})
	require.Error(t, err)
	assert.Equal(t, "PAY_002", apperror.Code(err))

	// At the ceiling exactly is allowed.
	_, err = e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("100.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)
}

func TestEngine_ReportingFiltersAndStats(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	_, aliceAcc := e.registerFunded(t, "alice", "100.00")
	_, bobAcc := e.registerFunded(t, "bob", "20.00")

	merchant, err := e.merchant.RegisterMerchant(ctx, ports.RegisterMerchantRequest{
		MerchantName: "Book Nook",
		Email:        "books@example.com",
	})
	require.NoError(t, err)

	_, err = e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: aliceAcc.ID,
		ToUsername:    "bob",
		Amount:        decimal.RequireFromString("30.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)

	_, err = e.transfer.PayMerchant(ctx, ports.MerchantPaymentRequest{
		FromAccountID: aliceAcc.ID,
		MerchantCode:  merchant.MerchantCode,
		Amount:        decimal.RequireFromString("12.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)

	_, err = e.transfer.Transfer(ctx, ports.TransferRequest{
		FromAccountID: bobAcc.ID,
		ToUsername:    "alice",
		Amount:        decimal.RequireFromString("5.00"),
		PIN:           testPIN,
	})
	require.NoError(t, err)

	// Unfiltered history: topup + two transfers + one payment touch alice.
	_, total, err := e.reporting.ListTransactions(ctx, ports.TransactionListParams{AccountID: aliceAcc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	// Type filter narrows to peer transfers only.
	transferType := domain.TransactionTypePeerTransfer
	txns, total, err := e.reporting.ListTransactions(ctx, ports.TransactionListParams{
		AccountID: aliceAcc.ID,
		Type:      &transferType,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, txn := range txns {
		assert.Equal(t, domain.TransactionTypePeerTransfer, txn.Type)
	}

	stats, err := e.reporting.GetAccountStats(ctx, aliceAcc.ID)
	require.NoError(t, err)
	assert.True(t, stats.TotalSent.Equal(decimal.RequireFromString("42.00")),
		"total sent = %s", stats.TotalSent)
	// Received = 100 topup + 5 from bob.
	assert.True(t, stats.TotalReceived.Equal(decimal.RequireFromString("105.00")),
		"total received = %s", stats.TotalReceived)
	assert.Equal(t, int64(4), stats.Count)
}

func TestEngine_DuplicateRegistrationRejected(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	e.registerFunded(t, "alice", "0")

	_, _, err := e.identity.RegisterOwner(ctx, ports.RegisterOwnerRequest{
		Username: "alice",
		Email:    "other@example.com",
		PIN:      testPIN,
	})
	require.Error(t, err)
	assert.Equal(t, "WAL_002", apperror.Code(err))
}
