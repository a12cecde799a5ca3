package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type mockTxnRepo struct {
	deposits     []*models.Transaction
	withdrawals  []*models.Transaction
	depositedSum float64
	reversed     *models.Transaction
	reverseErr   error
	withdrawErr  error
}

func (m *mockTxnRepo) CreateDeposit(ctx context.Context, txn *models.Transaction) error {
	txn.ID = "tx-dep"
	txn.Type = models.TransactionTypeDeposit
	txn.Status = models.TransactionStatusCompleted
	m.deposits = append(m.deposits, txn)
	return nil
}

func (m *mockTxnRepo) CreateWithdrawal(ctx context.Context, txn *models.Transaction) error {
	if m.withdrawErr != nil {
		return m.withdrawErr
	}
	txn.ID = "tx-wdr"
	txn.Type = models.TransactionTypeWithdrawal
	txn.Status = models.TransactionStatusCompleted
	m.withdrawals = append(m.withdrawals, txn)
	return nil
}

func (m *mockTxnRepo) Reverse(ctx context.Context, id string) (*models.Transaction, error) {
	if m.reverseErr != nil {
		return nil, m.reverseErr
	}
	return m.reversed, nil
}

func (m *mockTxnRepo) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	return nil, 0, nil
}

func (m *mockTxnRepo) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	return nil, sql.ErrNoRows
}

func (m *mockTxnRepo) ListByInmate(ctx context.Context, inmateID string, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (m *mockTxnRepo) SumDepositsSince(ctx context.Context, inmateID string, since time.Time) (float64, error) {
	return m.depositedSum, nil
}

type mockTxnInmates struct {
	inmate *models.Inmate
}

func (m *mockTxnInmates) FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error) {
	if m.inmate == nil {
		return nil, sql.ErrNoRows
	}
	return m.inmate, nil
}

type mockTxnLocations struct {
	location *models.Location
}

func (m *mockTxnLocations) FindByID(ctx context.Context, id string) (*models.Location, error) {
	if m.location == nil {
		return nil, sql.ErrNoRows
	}
	return m.location, nil
}

func newDepositFixture(limit float64, deposited float64) (*TransactionService, *mockTxnRepo) {
	locationID := "loc-1"
	repo := &mockTxnRepo{depositedSum: deposited}
	inmates := &mockTxnInmates{inmate: &models.Inmate{
		ID:          "a",
		InmateID:    "INM-001",
		CustodyType: models.CustodyUnderTrial,
		LocationID:  &locationID,
	}}
	locations := &mockTxnLocations{location: &models.Location{
		ID: locationID,
		CustodyLimits: models.CustodyLimits{
			{DepositLimit: 100, SpendLimit: 50},
			{DepositLimit: limit, SpendLimit: 50},
			{DepositLimit: 300, SpendLimit: 50},
		},
	}}
	svc := NewTransactionService(repo, inmates, locations, &mockCartCache{}, &mockAudit{}, nil, zap.NewNop())
	return svc, repo
}

func TestDepositWithinLimit(t *testing.T) {
	svc, repo := newDepositFixture(200, 50)

	txn, err := svc.Deposit(context.Background(), models.DepositRequest{
		InmateID:      "INM-001",
		DepositType:   "Bank",
		DepositAmount: 100,
	}, &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeDeposit, txn.Type)
	require.Len(t, repo.deposits, 1)
}

func TestDepositExceedingCustodyLimit(t *testing.T) {
	svc, repo := newDepositFixture(200, 150)

	_, err := svc.Deposit(context.Background(), models.DepositRequest{
		InmateID:      "INM-001",
		DepositType:   "Bank",
		DepositAmount: 100,
	}, &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLimitExceeded.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deposits)
}

func TestDepositUsesCustodyIndexedLimit(t *testing.T) {
	// UNDER_TRIAL reads the second limit entry, not the first
	svc, repo := newDepositFixture(500, 150)

	_, err := svc.Deposit(context.Background(), models.DepositRequest{
		InmateID:      "INM-001",
		DepositType:   "Bank",
		DepositAmount: 100,
	}, &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, repo.deposits, 1)
}

func TestDepositRejectsBlockedAccount(t *testing.T) {
	svc, _ := newDepositFixture(200, 0)
	blocked := &models.Inmate{ID: "a", InmateID: "INM-001", Blocked: true}
	svc.inmates = &mockTxnInmates{inmate: blocked}

	_, err := svc.Deposit(context.Background(), models.DepositRequest{
		InmateID:      "INM-001",
		DepositType:   "Bank",
		DepositAmount: 10,
	}, &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBlockedAccount.Code, appErrors.FromError(err).Code)
}

func TestDepositValidatesPayload(t *testing.T) {
	svc, _ := newDepositFixture(200, 0)

	_, err := svc.Deposit(context.Background(), models.DepositRequest{
		InmateID:      "INM-001",
		DepositType:   "Bank",
		DepositAmount: -5,
	}, &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWithdrawDebitsViaLedger(t *testing.T) {
	svc, repo := newDepositFixture(200, 0)

	txn, err := svc.Withdraw(context.Background(), models.WithdrawalRequest{
		InmateID:         "INM-001",
		WithdrawalAmount: 25,
		Remarks:          "release payout",
	}, &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeWithdrawal, txn.Type)
	require.Len(t, repo.withdrawals, 1)
	assert.InDelta(t, 25.0, repo.withdrawals[0].TotalAmount, 1e-9)
}

func TestWithdrawPropagatesInsufficientBalance(t *testing.T) {
	svc, repo := newDepositFixture(200, 0)
	repo.withdrawErr = appErrors.ErrInsufficientBalance

	_, err := svc.Withdraw(context.Background(), models.WithdrawalRequest{
		InmateID:         "INM-001",
		WithdrawalAmount: 1000,
	}, &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientBalance.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.withdrawals)
}

func TestWithdrawRejectsBlockedAccount(t *testing.T) {
	svc, repo := newDepositFixture(200, 0)
	svc.inmates = &mockTxnInmates{inmate: &models.Inmate{ID: "a", InmateID: "INM-001", Blocked: true}}

	_, err := svc.Withdraw(context.Background(), models.WithdrawalRequest{
		InmateID:         "INM-001",
		WithdrawalAmount: 10,
	}, &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBlockedAccount.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.withdrawals)
}

func TestReverseInvalidatesCaches(t *testing.T) {
	svc, repo := newDepositFixture(200, 0)
	repo.reversed = &models.Transaction{ID: "tx-1", InmateID: "INM-001", Status: models.TransactionStatusReversed}
	cache := &mockCartCache{}
	svc.cache = cache

	txn, err := svc.Reverse(context.Background(), "tx-1", &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusReversed, txn.Status)
	// The same views a checkout touches go stale again on reversal: the
	// restored stock must reach the cached POS catalog.
	assert.Contains(t, cache.groups, "tuck-shop")
	assert.Contains(t, cache.groups, "pos-shop-cart")
	assert.Contains(t, cache.groups, "transactions")
	assert.Contains(t, cache.inmates, "INM-001")
}

func TestReversePropagatesAlreadyReversed(t *testing.T) {
	svc, repo := newDepositFixture(200, 0)
	repo.reverseErr = appErrors.ErrAlreadyReversed

	_, err := svc.Reverse(context.Background(), "tx-1", &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReversed.Code, appErrors.FromError(err).Code)
}
