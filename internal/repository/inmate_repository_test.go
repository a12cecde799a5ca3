package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

func newInmateMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func inmateRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "inmate_id", "first_name", "last_name", "status", "custody_type", "phone", "cell_number", "balance", "blocked", "face_descriptor", "date_of_birth", "admission_date", "location_id", "created_at", "updated_at"}).
		AddRow("abc", "INM-001", "John", "Doe", models.InmateStatusActive, string(models.CustodyRemandPrison), "123", "B-12", 150.0, false, nil, nil, nil, nil, now, now)
}

func TestInmateRepositoryList(t *testing.T) {
	db, mock, cleanup := newInmateMock(t)
	defer cleanup()
	repo := NewInmateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+inmateColumns+" FROM inmates WHERE 1=1 AND status = $1 ORDER BY created_at DESC LIMIT 10 OFFSET 0")).
		WithArgs(models.InmateStatusActive).
		WillReturnRows(inmateRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM inmates WHERE 1=1 AND status = $1")).
		WithArgs(models.InmateStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	inmates, total, err := repo.List(context.Background(), models.InmateFilter{Status: models.InmateStatusActive})
	require.NoError(t, err)
	assert.Len(t, inmates, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "INM-001", inmates[0].InmateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInmateRepositoryFindByInmateID(t *testing.T) {
	db, mock, cleanup := newInmateMock(t)
	defer cleanup()
	repo := NewInmateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+inmateColumns+" FROM inmates WHERE UPPER(inmate_id) = UPPER($1) LIMIT 1")).
		WithArgs("inm-001").
		WillReturnRows(inmateRows())

	inmate, err := repo.FindByInmateID(context.Background(), "inm-001")
	require.NoError(t, err)
	assert.Equal(t, "INM-001", inmate.InmateID)
	assert.Equal(t, 150.0, inmate.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInmateRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newInmateMock(t)
	defer cleanup()
	repo := NewInmateRepository(db)

	mock.ExpectExec("INSERT INTO inmates").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Inmate{
		InmateID:    "INM-002",
		FirstName:   "Jane",
		LastName:    "Doe",
		Status:      models.InmateStatusActive,
		CustodyType: models.CustodyUnderTrial,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInmateRepositoryBalanceReport(t *testing.T) {
	db, mock, cleanup := newInmateMock(t)
	defer cleanup()
	repo := NewInmateRepository(db)

	rows := sqlmock.NewRows([]string{"inmate_id", "first_name", "last_name", "custody_type", "status", "balance"}).
		AddRow("INM-001", "John", "Doe", string(models.CustodyRemandPrison), models.InmateStatusActive, 150.0).
		AddRow("INM-002", "Jane", "Doe", string(models.CustodyUnderTrial), models.InmateStatusActive, 25.5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT inmate_id, first_name, last_name, custody_type, status, balance FROM inmates ORDER BY inmate_id ASC")).
		WillReturnRows(rows)

	report, err := repo.BalanceReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, 25.5, report[1].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
