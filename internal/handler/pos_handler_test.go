package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-systems/welfare-canteen-api/internal/middleware"
	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type fakeCartInmates struct {
	inmate *models.Inmate
}

func (f *fakeCartInmates) FindByInmateID(context.Context, string) (*models.Inmate, error) {
	if f.inmate == nil {
		return nil, appErrors.ErrNotFound
	}
	cp := *f.inmate
	return &cp, nil
}

type fakeCartCatalog struct {
	items []models.CanteenItem
}

func (f *fakeCartCatalog) Catalog(context.Context) ([]models.CanteenItem, error) {
	return f.items, nil
}

func (f *fakeCartCatalog) FindCanteenByID(_ context.Context, id string) (*models.CanteenItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

type fakeCartLedger struct {
	executed []*models.Transaction
}

func (f *fakeCartLedger) ExecutePurchase(_ context.Context, txn *models.Transaction) error {
	f.executed = append(f.executed, txn)
	return nil
}

func (f *fakeCartLedger) SumPurchasesSince(context.Context, string, time.Time) (float64, error) {
	return 0, nil
}

type fakeCartCache struct{}

func (fakeCartCache) InvalidateGroups(context.Context, ...string) {}
func (fakeCartCache) InvalidateInmate(context.Context, string)    {}

type fakeAuditSink struct{}

func (fakeAuditSink) Record(context.Context, *models.AuditLog) {}

func newPOSFixture(t *testing.T) (*POSHandler, *fakeCartLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inmates := &fakeCartInmates{inmate: &models.Inmate{
		ID:       "row-1",
		InmateID: "INM-001",
		Balance:  100,
	}}
	catalog := &fakeCartCatalog{items: []models.CanteenItem{
		{ID: "item-1", ItemNo: "C-01", ItemName: "Soap", Price: 12.5, StockQuantity: 4, Status: models.ItemStatusActive},
	}}
	ledger := &fakeCartLedger{}

	cart := service.NewCartService(inmates, catalog, ledger, nil, fakeCartCache{}, fakeAuditSink{}, nil)
	return NewPOSHandler(cart, nil, nil), ledger
}

func performPOS(handler gin.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "op-1", Role: models.RolePOS})

	handler(c)
	return rec
}

func TestPOSLookupBindsInmate(t *testing.T) {
	handler, _ := newPOSFixture(t)

	rec := performPOS(handler.Lookup, http.MethodPost, "/pos/cart/lookup", gin.H{"inmate_id": "INM-001"})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data service.CartState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Inmate)
	assert.Equal(t, "INM-001", envelope.Data.Inmate.InmateID)
	assert.False(t, envelope.Data.CanCheckout)
}

func TestPOSCheckoutFlow(t *testing.T) {
	handler, ledger := newPOSFixture(t)

	rec := performPOS(handler.Lookup, http.MethodPost, "/pos/cart/lookup", gin.H{"inmate_id": "INM-001"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performPOS(handler.AddItem, http.MethodPost, "/pos/cart/items", gin.H{"product_id": "item-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = performPOS(handler.AddItem, http.MethodPost, "/pos/cart/items", gin.H{"product_id": "item-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performPOS(handler.Checkout, http.MethodPost, "/pos/cart/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, ledger.executed, 1)
	assert.Equal(t, "INM-001", ledger.executed[0].InmateID)
	assert.InDelta(t, 25.0, ledger.executed[0].TotalAmount, 0.001)
}

func TestPOSCheckoutEmptyCartRejected(t *testing.T) {
	handler, ledger := newPOSFixture(t)

	rec := performPOS(handler.Lookup, http.MethodPost, "/pos/cart/lookup", gin.H{"inmate_id": "INM-001"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performPOS(handler.Checkout, http.MethodPost, "/pos/cart/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ledger.executed)
}

func TestPOSAddItemWithoutInmateRejected(t *testing.T) {
	handler, _ := newPOSFixture(t)

	rec := performPOS(handler.AddItem, http.MethodPost, "/pos/cart/items", gin.H{"product_id": "item-1"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestPOSRequiresClaims(t *testing.T) {
	handler, _ := newPOSFixture(t)
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/pos/cart", nil)

	handler.Cart(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
