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

	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

func newInventoryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func storeLineRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "receipt_id", "item_no", "item_name", "stock", "selling_price", "category", "status", "created_at", "updated_at"}).
		AddRow("line-1", "rcpt-1", "C-01", "Soap", 3, 12.5, "Hygiene", "Active", now.Add(-time.Hour), now).
		AddRow("line-2", "rcpt-2", "C-01", "Soap", 5, 12.5, "Hygiene", "Active", now, now)
}

func TestInventoryRepositoryTransferDebitsOldestFirst(t *testing.T) {
	db, mock, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + storeItemColumns + " FROM store_items WHERE item_no = $1 AND stock > 0 ORDER BY created_at ASC FOR UPDATE")).
		WithArgs("C-01").
		WillReturnRows(storeLineRows(t))
	// 5 units: all of line-1, then 2 from line-2.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE store_items SET stock = stock - $2, updated_at = $3 WHERE id = $1")).
		WithArgs("line-1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE store_items SET stock = stock - $2, updated_at = $3 WHERE id = $1")).
		WithArgs("line-2", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE canteen_items SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE item_no = $1")).
		WithArgs("C-01", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transfer(context.Background(), "C-01", 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryTransferInsufficientStock(t *testing.T) {
	db, mock, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + storeItemColumns + " FROM store_items WHERE item_no = $1 AND stock > 0 ORDER BY created_at ASC FOR UPDATE")).
		WithArgs("C-01").
		WillReturnRows(storeLineRows(t))
	mock.ExpectRollback()

	err := repo.Transfer(context.Background(), "C-01", 20)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrOutOfStock.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryTransferCreatesCanteenItem(t *testing.T) {
	db, mock, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + storeItemColumns + " FROM store_items WHERE item_no = $1 AND stock > 0 ORDER BY created_at ASC FOR UPDATE")).
		WithArgs("C-01").
		WillReturnRows(storeLineRows(t))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE store_items SET stock = stock - $2, updated_at = $3 WHERE id = $1")).
		WithArgs("line-1", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE canteen_items SET stock_quantity = stock_quantity + $2, updated_at = $3 WHERE item_no = $1")).
		WithArgs("C-01", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO canteen_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Transfer(context.Background(), "C-01", 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryTransferRejectsNonPositiveQty(t *testing.T) {
	db, _, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	err := repo.Transfer(context.Background(), "C-01", 0)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
