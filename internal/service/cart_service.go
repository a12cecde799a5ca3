package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type cartInmateRepository interface {
	FindByInmateID(ctx context.Context, inmateID string) (*models.Inmate, error)
}

type cartCatalogRepository interface {
	Catalog(ctx context.Context) ([]models.CanteenItem, error)
	FindCanteenByID(ctx context.Context, id string) (*models.CanteenItem, error)
}

type cartLedger interface {
	ExecutePurchase(ctx context.Context, txn *models.Transaction) error
	SumPurchasesSince(ctx context.Context, inmateID string, since time.Time) (float64, error)
}

type cartLocationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Location, error)
}

type cartCache interface {
	InvalidateGroups(ctx context.Context, groups ...string)
	InvalidateInmate(ctx context.Context, inmateID string)
}

// CartLine is one aggregated product line of the cart view.
type CartLine struct {
	ProductID string  `json:"productId"`
	ItemName  string  `json:"itemName"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// CartState is the full cart view returned to the POS screen after every
// mutation.
type CartState struct {
	Inmate      *models.Inmate `json:"inmate,omitempty"`
	Lines       []CartLine     `json:"lines"`
	Total       float64        `json:"total"`
	CanCheckout bool           `json:"canCheckout"`
}

type cartUnit struct {
	productID string
	itemName  string
	price     float64
}

// cart is one operator's in-progress sale. Units are raw: each added unit is
// its own entry, aggregation happens only in the view and at checkout.
type cart struct {
	seq    uint64
	inmate *models.Inmate
	units  []cartUnit
}

// CartService holds per-operator POS carts in memory. Carts are scratch
// state; the ledger is written only at checkout.
type CartService struct {
	mu        sync.Mutex
	carts     map[string]*cart
	inmates   cartInmateRepository
	catalog   cartCatalogRepository
	ledger    cartLedger
	locations cartLocationRepository
	cache     cartCache
	audit     auditRecorder
	logger    *zap.Logger
}

// NewCartService constructs a CartService.
func NewCartService(inmates cartInmateRepository, catalog cartCatalogRepository, ledger cartLedger, locations cartLocationRepository, cache cartCache, audit auditRecorder, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		carts:     make(map[string]*cart),
		inmates:   inmates,
		catalog:   catalog,
		ledger:    ledger,
		locations: locations,
		cache:     cache,
		audit:     audit,
		logger:    logger,
	}
}

func (s *CartService) cartFor(operatorID string) *cart {
	c, ok := s.carts[operatorID]
	if !ok {
		c = &cart{}
		s.carts[operatorID] = c
	}
	return c
}

// LookupInmate resolves the business key and binds the inmate to the
// operator's cart. Concurrent lookups race under a sequence number: only the
// most recently started lookup may bind its result, so a slow earlier
// response can never clobber a newer one.
func (s *CartService) LookupInmate(ctx context.Context, operatorID, inmateID string) (*CartState, error) {
	s.mu.Lock()
	c := s.cartFor(operatorID)
	c.seq++
	seq := c.seq
	s.mu.Unlock()

	inmate, err := s.inmates.FindByInmateID(ctx, inmateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no inmate with that id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up inmate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.seq != seq {
		// superseded by a newer lookup
		return s.stateLocked(c), nil
	}
	c.inmate = inmate
	c.units = nil
	return s.stateLocked(c), nil
}

// AddUnit appends one unit of the item to the cart. The cart never holds
// more units of an item than the catalog has in stock.
func (s *CartService) AddUnit(ctx context.Context, operatorID, productID string) (*CartState, error) {
	item, err := s.catalog.FindCanteenByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if item.Status != models.ItemStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "item is not for sale")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartFor(operatorID)
	if c.inmate == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "look up an inmate first")
	}

	count := 0
	for _, u := range c.units {
		if u.productID == productID {
			count++
		}
	}
	if count >= item.StockQuantity {
		return nil, appErrors.Clone(appErrors.ErrOutOfStock, "no more stock for this item")
	}

	c.units = append(c.units, cartUnit{productID: item.ID, itemName: item.ItemName, price: item.Price})
	return s.stateLocked(c), nil
}

// RemoveUnit drops one unit of the item from the cart. Removing an item
// with no units is a no-op, mirroring the silent cap on AddUnit.
func (s *CartService) RemoveUnit(operatorID, productID string) (*CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartFor(operatorID)
	for i := len(c.units) - 1; i >= 0; i-- {
		if c.units[i].productID == productID {
			c.units = append(c.units[:i], c.units[i+1:]...)
			break
		}
	}
	return s.stateLocked(c), nil
}

// Clear empties the operator's cart, keeping the bound inmate.
func (s *CartService) Clear(operatorID string) *CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartFor(operatorID)
	c.units = nil
	return s.stateLocked(c)
}

// State returns the operator's current cart view.
func (s *CartService) State(operatorID string) *CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(s.cartFor(operatorID))
}

// Checkout turns the cart into a completed purchase. Eligibility is checked
// here and enforced again atomically inside the ledger write.
func (s *CartService) Checkout(ctx context.Context, operatorID string, claims *models.JWTClaims) (*models.Transaction, error) {
	s.mu.Lock()
	c := s.cartFor(operatorID)
	if c.inmate == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "look up an inmate first")
	}
	state := s.stateLocked(c)
	inmate := c.inmate
	s.mu.Unlock()

	if !state.CanCheckout {
		if state.Total <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cart is empty")
		}
		return nil, appErrors.ErrInsufficientBalance
	}

	if err := s.checkSpendLimit(ctx, inmate, state.Total); err != nil {
		return nil, err
	}

	products := make(models.TransactionProducts, 0, len(state.Lines))
	for _, line := range state.Lines {
		products = append(products, models.TransactionProduct{
			ProductID: line.ProductID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	txn := &models.Transaction{
		InmateID:    inmate.InmateID,
		TotalAmount: state.Total,
		Products:    products,
		CreatedBy:   &claims.UserID,
	}
	if err := s.ledger.ExecutePurchase(ctx, txn); err != nil {
		return nil, err
	}

	s.mu.Lock()
	c.units = nil
	c.inmate = nil
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupTuckShop, repository.CacheGroupPOSCart)
		s.cache.InvalidateInmate(ctx, inmate.InmateID)
	}

	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionCheckout,
			Resource:   "transaction",
			ResourceID: &txn.ID,
		})
	}

	return txn, nil
}

// checkSpendLimit enforces the custody-class spend ceiling of the inmate's
// location against this month's completed purchases plus the cart total.
func (s *CartService) checkSpendLimit(ctx context.Context, inmate *models.Inmate, total float64) error {
	if s.locations == nil || inmate.LocationID == nil {
		return nil
	}

	location, err := s.locations.FindByID(ctx, *inmate.LocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location limits")
	}
	limit, ok := location.CustodyLimits.ForCustody(inmate.CustodyType)
	if !ok || limit.SpendLimit <= 0 {
		return nil
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	spent, err := s.ledger.SumPurchasesSince(ctx, inmate.InmateID, monthStart)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total purchases")
	}
	if spent+total > limit.SpendLimit {
		return appErrors.Clone(appErrors.ErrLimitExceeded,
			fmt.Sprintf("monthly spend limit of %.2f would be exceeded", limit.SpendLimit))
	}
	return nil
}

// stateLocked builds the aggregated view. Callers hold the mutex.
func (s *CartService) stateLocked(c *cart) *CartState {
	state := &CartState{Inmate: c.inmate, Lines: []CartLine{}}
	index := map[string]int{}
	for _, u := range c.units {
		if i, ok := index[u.productID]; ok {
			line := &state.Lines[i]
			line.Quantity++
			line.Subtotal += u.price
		} else {
			index[u.productID] = len(state.Lines)
			state.Lines = append(state.Lines, CartLine{
				ProductID: u.productID,
				ItemName:  u.itemName,
				Price:     u.price,
				Quantity:  1,
				Subtotal:  u.price,
			})
		}
		state.Total += u.price
	}
	if c.inmate != nil && !c.inmate.Blocked {
		state.CanCheckout = state.Total > 0 && state.Total <= c.inmate.Balance
	}
	return state
}
