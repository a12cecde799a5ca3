package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type inventoryRepository interface {
	ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, int, error)
	Catalog(ctx context.Context) ([]models.CanteenItem, error)
	FindCanteenByID(ctx context.Context, id string) (*models.CanteenItem, error)
	ExistsCanteenByItemNo(ctx context.Context, itemNo, excludeID string) (bool, error)
	CreateCanteen(ctx context.Context, item *models.CanteenItem) error
	UpdateCanteen(ctx context.Context, item *models.CanteenItem) error
	DeleteCanteen(ctx context.Context, id string) error
	ListReceipts(ctx context.Context, filter models.InventoryFilter) ([]models.StoreReceipt, int, error)
	FindReceiptByID(ctx context.Context, id string) (*models.StoreReceipt, error)
	CreateReceipt(ctx context.Context, receipt *models.StoreReceipt) error
	UpdateReceipt(ctx context.Context, receipt *models.StoreReceipt) error
	DeleteReceipt(ctx context.Context, id string) error
	Transfer(ctx context.Context, itemNo string, qty int) error
}

type inventoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateGroups(ctx context.Context, groups ...string)
}

// TransferRequest moves stock from the store tier into the canteen tier.
type TransferRequest struct {
	ItemNo      string `json:"itemNo" validate:"required"`
	TransferQty int    `json:"transferQty" validate:"required,gt=0"`
}

// InventoryService manages the two stock tiers and the transfer between
// them.
type InventoryService struct {
	repo      inventoryRepository
	cache     inventoryCache
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	listTTL   time.Duration
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(repo inventoryRepository, cache inventoryCache, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, listTTL time.Duration) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	return &InventoryService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, listTTL: listTTL}
}

// Catalog returns the POS-facing list of sellable items, served from cache
// when fresh.
func (s *InventoryService) Catalog(ctx context.Context) ([]models.CanteenItem, error) {
	key := repository.Key(repository.CacheGroupTuckShop, "catalog")
	if s.cache != nil {
		var cached []models.CanteenItem
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	items, err := s.repo.Catalog(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, items, s.listTTL); err != nil {
			s.logger.Warn("failed to cache catalog", zap.Error(err))
		}
	}
	return items, nil
}

// ListCanteen returns canteen items matching the filter.
func (s *InventoryService) ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, *models.Pagination, error) {
	items, total, err := s.repo.ListCanteen(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list canteen items")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetCanteen fetches one canteen item.
func (s *InventoryService) GetCanteen(ctx context.Context, id string) (*models.CanteenItem, error) {
	item, err := s.repo.FindCanteenByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	return item, nil
}

// CreateCanteen adds a canteen item directly.
func (s *InventoryService) CreateCanteen(ctx context.Context, item *models.CanteenItem, claims *models.JWTClaims) error {
	if err := s.validator.Struct(item); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	taken, err := s.repo.ExistsCanteenByItemNo(ctx, item.ItemNo, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check item number")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("item number %s already exists", item.ItemNo))
	}
	if item.Status == "" {
		item.Status = models.ItemStatusActive
	}
	if err := s.repo.CreateCanteen(ctx, item); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}

	s.invalidate(ctx, repository.CacheGroupInventory, repository.CacheGroupTuckShop)
	s.record(ctx, claims, models.AuditActionCreate, "canteen_item", item.ID)
	return nil
}

// UpdateCanteen modifies a canteen item.
func (s *InventoryService) UpdateCanteen(ctx context.Context, item *models.CanteenItem, claims *models.JWTClaims) error {
	if _, err := s.GetCanteen(ctx, item.ID); err != nil {
		return err
	}
	taken, err := s.repo.ExistsCanteenByItemNo(ctx, item.ItemNo, item.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check item number")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("item number %s already exists", item.ItemNo))
	}
	if err := s.repo.UpdateCanteen(ctx, item); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}

	s.invalidate(ctx, repository.CacheGroupInventory, repository.CacheGroupTuckShop)
	s.record(ctx, claims, models.AuditActionUpdate, "canteen_item", item.ID)
	return nil
}

// DeleteCanteen removes a canteen item.
func (s *InventoryService) DeleteCanteen(ctx context.Context, id string, claims *models.JWTClaims) error {
	if _, err := s.GetCanteen(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCanteen(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete item")
	}

	s.invalidate(ctx, repository.CacheGroupInventory, repository.CacheGroupTuckShop)
	s.record(ctx, claims, models.AuditActionDelete, "canteen_item", id)
	return nil
}

// ListReceipts returns store receipts.
func (s *InventoryService) ListReceipts(ctx context.Context, filter models.InventoryFilter) ([]models.StoreReceipt, *models.Pagination, error) {
	receipts, total, err := s.repo.ListReceipts(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list store receipts")
	}
	return receipts, paginationFor(filter.Page, filter.PageSize, total), nil
}

// GetReceipt fetches one store receipt with its lines.
func (s *InventoryService) GetReceipt(ctx context.Context, id string) (*models.StoreReceipt, error) {
	receipt, err := s.repo.FindReceiptByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	return receipt, nil
}

// CreateReceipt records a vendor delivery into the store tier.
func (s *InventoryService) CreateReceipt(ctx context.Context, receipt *models.StoreReceipt, claims *models.JWTClaims) error {
	if err := s.validator.Struct(receipt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}
	if len(receipt.Items) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "a receipt needs at least one item")
	}
	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create receipt")
	}

	s.invalidate(ctx, repository.CacheGroupStoreInventory)
	s.record(ctx, claims, models.AuditActionCreate, "store_receipt", receipt.ID)
	return nil
}

// UpdateReceipt replaces a receipt and its lines.
func (s *InventoryService) UpdateReceipt(ctx context.Context, receipt *models.StoreReceipt, claims *models.JWTClaims) error {
	if _, err := s.GetReceipt(ctx, receipt.ID); err != nil {
		return err
	}
	if err := s.repo.UpdateReceipt(ctx, receipt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update receipt")
	}

	s.invalidate(ctx, repository.CacheGroupStoreInventory)
	s.record(ctx, claims, models.AuditActionUpdate, "store_receipt", receipt.ID)
	return nil
}

// DeleteReceipt removes a receipt and its lines.
func (s *InventoryService) DeleteReceipt(ctx context.Context, id string, claims *models.JWTClaims) error {
	if _, err := s.GetReceipt(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteReceipt(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete receipt")
	}

	s.invalidate(ctx, repository.CacheGroupStoreInventory)
	s.record(ctx, claims, models.AuditActionDelete, "store_receipt", id)
	return nil
}

// Transfer moves stock from the store tier into the canteen tier and drops
// every cached view of both tiers.
func (s *InventoryService) Transfer(ctx context.Context, req TransferRequest, claims *models.JWTClaims) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if err := s.repo.Transfer(ctx, req.ItemNo, req.TransferQty); err != nil {
		return err
	}

	s.invalidate(ctx, repository.CacheGroupInventory, repository.CacheGroupTuckShop, repository.CacheGroupStoreInventory)
	s.record(ctx, claims, models.AuditActionTransfer, "canteen_item", req.ItemNo)
	return nil
}

func (s *InventoryService) invalidate(ctx context.Context, groups ...string) {
	if s.cache != nil {
		s.cache.InvalidateGroups(ctx, groups...)
	}
}

func (s *InventoryService) record(ctx context.Context, claims *models.JWTClaims, action, resource, resourceID string) {
	if s.audit == nil || claims == nil {
		return
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	})
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
