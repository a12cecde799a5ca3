package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/pkg/storage"
)

type pagedInmateSource struct {
	rows  []models.Inmate
	calls int
}

func (s *pagedInmateSource) List(ctx context.Context, filter models.InmateFilter) ([]models.Inmate, int, error) {
	s.calls++
	start, end := pageBounds(len(s.rows), filter.Page, filter.PageSize)
	return s.rows[start:end], len(s.rows), nil
}

type pagedLedgerSource struct {
	rows []models.Transaction
}

func (s *pagedLedgerSource) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	start, end := pageBounds(len(s.rows), filter.Page, filter.PageSize)
	return s.rows[start:end], len(s.rows), nil
}

type pagedCatalogSource struct {
	rows []models.CanteenItem
}

func (s *pagedCatalogSource) ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, int, error) {
	start, end := pageBounds(len(s.rows), filter.Page, filter.PageSize)
	return s.rows[start:end], len(s.rows), nil
}

func pageBounds(total, page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

func TestBackupDrainsAllPages(t *testing.T) {
	inmates := &pagedInmateSource{}
	for i := 0; i < 250; i++ {
		inmates.rows = append(inmates.rows, models.Inmate{InmateID: fmt.Sprintf("INM-%03d", i)})
	}
	ledger := &pagedLedgerSource{}
	for i := 0; i < 100; i++ {
		ledger.rows = append(ledger.rows, models.Transaction{ID: fmt.Sprintf("tx-%03d", i)})
	}
	catalog := &pagedCatalogSource{rows: []models.CanteenItem{{ItemNo: "C-001", ItemName: "Soap"}}}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := NewBackupService(inmates, ledger, catalog, store, zap.NewNop(), BackupConfig{})

	stored, err := svc.Run(context.Background(), "")
	require.NoError(t, err)

	payload, err := os.ReadFile(store.Path(stored))
	require.NoError(t, err)

	var doc struct {
		Inmates      []models.Inmate      `json:"inmates"`
		Transactions []models.Transaction `json:"transactions"`
		Catalog      []models.CanteenItem `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(payload, &doc))

	assert.Len(t, doc.Inmates, 250)
	assert.Equal(t, "INM-249", doc.Inmates[249].InmateID)
	assert.Len(t, doc.Transactions, 100)
	assert.Len(t, doc.Catalog, 1)
	// 250 rows at 100 per page is three fetches.
	assert.Equal(t, 3, inmates.calls)
}
