package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

func newTransactionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTransactionRepositoryExecutePurchase(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance, blocked FROM inmates WHERE UPPER(inmate_id) = UPPER($1) FOR UPDATE")).
		WithArgs("INM-001").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "blocked"}).AddRow(100.0, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE canteen_items SET stock_quantity = stock_quantity - $2, updated_at = $3 WHERE id = $1 AND stock_quantity >= $2")).
		WithArgs("item-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inmates SET balance = balance - $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)")).
		WithArgs("INM-001", 30.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	txn := &models.Transaction{
		InmateID:    "INM-001",
		TotalAmount: 30.0,
		Products:    models.TransactionProducts{{ProductID: "item-1", ItemName: "Soap", Quantity: 2, Price: 15.0}},
	}
	err := repo.ExecutePurchase(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotEmpty(t, txn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryExecutePurchaseInsufficientBalance(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance, blocked FROM inmates WHERE UPPER(inmate_id) = UPPER($1) FOR UPDATE")).
		WithArgs("INM-001").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "blocked"}).AddRow(10.0, false))
	mock.ExpectRollback()

	err := repo.ExecutePurchase(context.Background(), &models.Transaction{
		InmateID:    "INM-001",
		TotalAmount: 30.0,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInsufficientBalance) || appErrors.FromError(err).Code == appErrors.ErrInsufficientBalance.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryExecutePurchaseBlocked(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance, blocked FROM inmates WHERE UPPER(inmate_id) = UPPER($1) FOR UPDATE")).
		WithArgs("INM-001").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "blocked"}).AddRow(100.0, true))
	mock.ExpectRollback()

	err := repo.ExecutePurchase(context.Background(), &models.Transaction{InmateID: "INM-001", TotalAmount: 5.0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBlockedAccount.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryReverseAlreadyReversed(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	reversedAt := time.Now()
	rows := sqlmock.NewRows([]string{"id", "type", "inmate_id", "total_amount", "products", "deposit_type", "relationship_id", "remarks", "status", "created_by", "reversed_at", "created_at"}).
		AddRow("tx-1", models.TransactionTypePurchase, "INM-001", 30.0, []byte(`[]`), "", "", "", models.TransactionStatusReversed, nil, reversedAt, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+transactionColumns+" FROM transactions WHERE id = $1 FOR UPDATE")).
		WithArgs("tx-1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	_, err := repo.Reverse(context.Background(), "tx-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReversed.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryReversePurchase(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "type", "inmate_id", "total_amount", "products", "deposit_type", "relationship_id", "remarks", "status", "created_by", "reversed_at", "created_at"}).
		AddRow("tx-1", models.TransactionTypePurchase, "INM-001", 30.0, []byte(`[{"productId":"item-1","itemName":"Soap","quantity":2,"price":15}]`), "", "", "", models.TransactionStatusCompleted, nil, nil, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+transactionColumns+" FROM transactions WHERE id = $1 FOR UPDATE")).
		WithArgs("tx-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inmates SET balance = balance + $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)")).
		WithArgs("INM-001", 30.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE canteen_items SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE id = $1")).
		WithArgs("item-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET status = $2, reversed_at = $3 WHERE id = $1")).
		WithArgs("tx-1", models.TransactionStatusReversed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, err := repo.Reverse(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusReversed, txn.Status)
	require.NotNil(t, txn.ReversedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryCreateDeposit(t *testing.T) {
	db, mock, cleanup := newTransactionMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inmates SET balance = balance + $2, updated_at = $3 WHERE UPPER(inmate_id) = UPPER($1)")).
		WithArgs("INM-001", 50.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateDeposit(context.Background(), &models.Transaction{
		InmateID:    "INM-001",
		TotalAmount: 50.0,
		DepositType: "Bank",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
