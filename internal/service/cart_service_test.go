package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type mockCartInmates struct {
	mu      sync.Mutex
	inmates map[string]*models.Inmate
	gates   map[string]chan struct{}
	entered chan struct{}
}

func (m *mockCartInmates) FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error) {
	m.mu.Lock()
	gate := m.gates[inmateID]
	inmate := m.inmates[inmateID]
	entered := m.entered
	m.mu.Unlock()
	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}
	if inmate == nil {
		return nil, sql.ErrNoRows
	}
	return inmate, nil
}

type mockCartCatalog struct {
	items map[string]*models.CanteenItem
}

func (m *mockCartCatalog) Catalog(ctx context.Context) ([]models.CanteenItem, error) {
	var out []models.CanteenItem
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockCartCatalog) FindCanteenByID(ctx context.Context, id string) (*models.CanteenItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return item, nil
}

type mockCartLedger struct {
	executed []*models.Transaction
	spent    float64
	err      error
}

func (m *mockCartLedger) ExecutePurchase(ctx context.Context, txn *models.Transaction) error {
	if m.err != nil {
		return m.err
	}
	txn.ID = "tx-1"
	m.executed = append(m.executed, txn)
	return nil
}

func (m *mockCartLedger) SumPurchasesSince(ctx context.Context, inmateID string, since time.Time) (float64, error) {
	return m.spent, nil
}

type mockCartLocations struct {
	location *models.Location
}

func (m *mockCartLocations) FindByID(ctx context.Context, id string) (*models.Location, error) {
	if m.location == nil || m.location.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.location, nil
}

type mockCartCache struct {
	groups  []string
	inmates []string
}

func (m *mockCartCache) InvalidateGroups(ctx context.Context, groups ...string) {
	m.groups = append(m.groups, groups...)
}

func (m *mockCartCache) InvalidateInmate(ctx context.Context, inmateID string) {
	m.inmates = append(m.inmates, inmateID)
}

type mockAudit struct {
	entries []*models.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, entry *models.AuditLog) {
	m.entries = append(m.entries, entry)
}

func newCartFixture() (*CartService, *mockCartInmates, *mockCartCatalog, *mockCartLedger, *mockCartCache) {
	inmates := &mockCartInmates{
		inmates: map[string]*models.Inmate{
			"INM-001": {ID: "a", InmateID: "INM-001", FirstName: "John", Balance: 20.0},
			"INM-002": {ID: "b", InmateID: "INM-002", FirstName: "Jane", Balance: 5.0},
		},
		gates: map[string]chan struct{}{},
	}
	catalog := &mockCartCatalog{
		items: map[string]*models.CanteenItem{
			"soap":  {ID: "soap", ItemNo: "S1", ItemName: "Soap", Price: 3.0, StockQuantity: 2, Status: models.ItemStatusActive},
			"candy": {ID: "candy", ItemNo: "C1", ItemName: "Candy", Price: 1.5, StockQuantity: 10, Status: models.ItemStatusActive},
		},
	}
	ledger := &mockCartLedger{}
	cache := &mockCartCache{}
	svc := NewCartService(inmates, catalog, ledger, nil, cache, &mockAudit{}, zap.NewNop())
	return svc, inmates, catalog, ledger, cache
}

func TestCartAddUnitCappedByStock(t *testing.T) {
	svc, _, _, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.LookupInmate(ctx, "op", "INM-001")
	require.NoError(t, err)

	_, err = svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)
	state, err := svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Lines[0].Quantity)

	_, err = svc.AddUnit(ctx, "op", "soap")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutOfStock.Code, appErrors.FromError(err).Code)

	// cart unchanged after the rejected add
	state = svc.State("op")
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

func TestCartTotalAndAggregation(t *testing.T) {
	svc, _, _, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.LookupInmate(ctx, "op", "INM-001")
	require.NoError(t, err)

	_, err = svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)
	_, err = svc.AddUnit(ctx, "op", "candy")
	require.NoError(t, err)
	state, err := svc.AddUnit(ctx, "op", "candy")
	require.NoError(t, err)

	assert.Len(t, state.Lines, 2)
	assert.InDelta(t, 6.0, state.Total, 1e-9)
	assert.True(t, state.CanCheckout)

	state, err = svc.RemoveUnit("op", "candy")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, state.Total, 1e-9)
}

func TestCartCheckoutEligibility(t *testing.T) {
	svc, _, _, _, _ := newCartFixture()
	ctx := context.Background()

	// empty cart cannot check out
	_, err := svc.LookupInmate(ctx, "op", "INM-002")
	require.NoError(t, err)
	state := svc.State("op")
	assert.False(t, state.CanCheckout)

	// total above balance cannot check out
	for i := 0; i < 4; i++ {
		_, err = svc.AddUnit(ctx, "op", "candy")
		require.NoError(t, err)
	}
	state = svc.State("op")
	assert.InDelta(t, 6.0, state.Total, 1e-9)
	assert.False(t, state.CanCheckout)

	_, err = svc.Checkout(ctx, "op", &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientBalance.Code, appErrors.FromError(err).Code)

	// dropping back under the balance makes it eligible again
	_, err = svc.RemoveUnit("op", "candy")
	require.NoError(t, err)
	state = svc.State("op")
	assert.True(t, state.CanCheckout)
}

func TestCartRemoveUnitNoOpAtZero(t *testing.T) {
	svc, _, _, _, _ := newCartFixture()
	ctx := context.Background()

	_, err := svc.LookupInmate(ctx, "op", "INM-001")
	require.NoError(t, err)

	// removing an item that was never added leaves the cart untouched
	state, err := svc.RemoveUnit("op", "candy")
	require.NoError(t, err)
	assert.Empty(t, state.Lines)
	assert.Zero(t, state.Total)

	_, err = svc.AddUnit(ctx, "op", "candy")
	require.NoError(t, err)
	state, err = svc.RemoveUnit("op", "candy")
	require.NoError(t, err)
	assert.Empty(t, state.Lines)

	// and one past empty is still fine
	state, err = svc.RemoveUnit("op", "candy")
	require.NoError(t, err)
	assert.Empty(t, state.Lines)
	assert.Zero(t, state.Total)
}

func TestCartCheckoutAllowedAtExactBalance(t *testing.T) {
	svc, inmates, _, ledger, _ := newCartFixture()
	ctx := context.Background()
	inmates.inmates["INM-002"].Balance = 4.5

	_, err := svc.LookupInmate(ctx, "op", "INM-002")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = svc.AddUnit(ctx, "op", "candy")
		require.NoError(t, err)
	}

	// total == balance sits inside the eligible range
	state := svc.State("op")
	assert.InDelta(t, 4.5, state.Total, 1e-9)
	assert.True(t, state.CanCheckout)

	txn, err := svc.Checkout(ctx, "op", &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	assert.InDelta(t, 4.5, txn.TotalAmount, 1e-9)
	require.Len(t, ledger.executed, 1)
}

func TestCartCheckoutWritesLedgerAndClears(t *testing.T) {
	svc, _, _, ledger, cache := newCartFixture()
	ctx := context.Background()

	_, err := svc.LookupInmate(ctx, "op", "INM-001")
	require.NoError(t, err)
	_, err = svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)
	_, err = svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)

	txn, err := svc.Checkout(ctx, "op", &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, ledger.executed, 1)
	assert.Equal(t, "INM-001", txn.InmateID)
	assert.InDelta(t, 6.0, txn.TotalAmount, 1e-9)
	require.Len(t, txn.Products, 1)
	assert.Equal(t, 2, txn.Products[0].Quantity)

	state := svc.State("op")
	assert.Nil(t, state.Inmate)
	assert.Empty(t, state.Lines)

	assert.Contains(t, cache.groups, "tuck-shop")
	assert.Contains(t, cache.groups, "pos-shop-cart")
	assert.Contains(t, cache.inmates, "INM-001")
}

func TestCartCheckoutEnforcesSpendLimit(t *testing.T) {
	svc, inmates, _, ledger, _ := newCartFixture()
	ctx := context.Background()

	locationID := "loc-1"
	inmates.inmates["INM-001"].LocationID = &locationID
	inmates.inmates["INM-001"].CustodyType = models.CustodyUnderTrial
	ledger.spent = 48.0
	svc.locations = &mockCartLocations{location: &models.Location{
		ID: locationID,
		CustodyLimits: models.CustodyLimits{
			{DepositLimit: 100, SpendLimit: 200},
			{DepositLimit: 100, SpendLimit: 50},
			{DepositLimit: 100, SpendLimit: 200},
		},
	}}

	_, err := svc.LookupInmate(ctx, "op", "INM-001")
	require.NoError(t, err)
	_, err = svc.AddUnit(ctx, "op", "soap")
	require.NoError(t, err)

	// 48 already spent this month + 3.00 cart exceeds the 50 ceiling
	_, err = svc.Checkout(ctx, "op", &models.JWTClaims{UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLimitExceeded.Code, appErrors.FromError(err).Code)
	assert.Empty(t, ledger.executed)

	// under the ceiling the same cart clears
	ledger.spent = 10.0
	_, err = svc.Checkout(ctx, "op", &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, ledger.executed, 1)
}

func TestCartLastLookupWins(t *testing.T) {
	svc, inmates, _, _, _ := newCartFixture()
	ctx := context.Background()

	gate := make(chan struct{})
	entered := make(chan struct{})
	inmates.mu.Lock()
	inmates.gates["INM-001"] = gate
	inmates.entered = entered
	inmates.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// slow lookup, started first
		_, err := svc.LookupInmate(ctx, "op", "INM-001")
		assert.NoError(t, err)
	}()
	<-entered

	// second lookup completes while the first is still in flight
	state, err := svc.LookupInmate(ctx, "op", "INM-002")
	require.NoError(t, err)
	require.NotNil(t, state.Inmate)
	assert.Equal(t, "INM-002", state.Inmate.InmateID)

	close(gate)
	wg.Wait()

	// the stale first lookup must not have replaced the newer binding
	state = svc.State("op")
	require.NotNil(t, state.Inmate)
	assert.Equal(t, "INM-002", state.Inmate.InmateID)
}
