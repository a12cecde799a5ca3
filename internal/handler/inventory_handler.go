package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// InventoryHandler exposes canteen stock and store receipt endpoints.
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler constructs InventoryHandler.
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

func inventoryFilterFrom(c *gin.Context) models.InventoryFilter {
	var filter models.InventoryFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("startDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.StartDate = &t
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.EndDate = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// ListCanteen godoc
// @Summary List canteen items
// @Tags Inventory
// @Produce json
// @Param search query string false "Search by item number or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inventory/canteen [get]
func (h *InventoryHandler) ListCanteen(c *gin.Context) {
	items, pagination, err := h.inventory.ListCanteen(c.Request.Context(), inventoryFilterFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetCanteen godoc
// @Summary Get canteen item
// @Tags Inventory
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /inventory/canteen/{id} [get]
func (h *InventoryHandler) GetCanteen(c *gin.Context) {
	item, err := h.inventory.GetCanteen(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateCanteen godoc
// @Summary Create canteen item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body models.CanteenItem true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inventory/canteen [post]
func (h *InventoryHandler) CreateCanteen(c *gin.Context) {
	var item models.CanteenItem
	if err := c.ShouldBindJSON(&item); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.inventory.CreateCanteen(c.Request.Context(), &item, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateCanteen godoc
// @Summary Update canteen item
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body models.CanteenItem true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /inventory/canteen/{id} [put]
func (h *InventoryHandler) UpdateCanteen(c *gin.Context) {
	var item models.CanteenItem
	if err := c.ShouldBindJSON(&item); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}
	item.ID = c.Param("id")

	claims, _ := currentClaims(c)
	if err := h.inventory.UpdateCanteen(c.Request.Context(), &item, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteCanteen godoc
// @Summary Delete canteen item
// @Tags Inventory
// @Produce json
// @Param id path string true "Item ID"
// @Success 204 {object} response.Envelope
// @Router /inventory/canteen/{id} [delete]
func (h *InventoryHandler) DeleteCanteen(c *gin.Context) {
	claims, _ := currentClaims(c)
	if err := h.inventory.DeleteCanteen(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListReceipts godoc
// @Summary List store receipts
// @Tags Inventory
// @Produce json
// @Param search query string false "Search by supplier or item"
// @Param startDate query string false "Receipts on or after (YYYY-MM-DD)"
// @Param endDate query string false "Receipts on or before (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inventory/receipts [get]
func (h *InventoryHandler) ListReceipts(c *gin.Context) {
	receipts, pagination, err := h.inventory.ListReceipts(c.Request.Context(), inventoryFilterFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipts, pagination)
}

// GetReceipt godoc
// @Summary Get store receipt
// @Tags Inventory
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} response.Envelope
// @Router /inventory/receipts/{id} [get]
func (h *InventoryHandler) GetReceipt(c *gin.Context) {
	receipt, err := h.inventory.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// CreateReceipt godoc
// @Summary Record store receipt
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body models.StoreReceipt true "Receipt payload"
// @Success 201 {object} response.Envelope
// @Router /inventory/receipts [post]
func (h *InventoryHandler) CreateReceipt(c *gin.Context) {
	var receipt models.StoreReceipt
	if err := c.ShouldBindJSON(&receipt); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid receipt payload"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.inventory.CreateReceipt(c.Request.Context(), &receipt, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// UpdateReceipt godoc
// @Summary Update store receipt
// @Tags Inventory
// @Accept json
// @Produce json
// @Param id path string true "Receipt ID"
// @Param payload body models.StoreReceipt true "Receipt payload"
// @Success 200 {object} response.Envelope
// @Router /inventory/receipts/{id} [put]
func (h *InventoryHandler) UpdateReceipt(c *gin.Context) {
	var receipt models.StoreReceipt
	if err := c.ShouldBindJSON(&receipt); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid receipt payload"))
		return
	}
	receipt.ID = c.Param("id")

	claims, _ := currentClaims(c)
	if err := h.inventory.UpdateReceipt(c.Request.Context(), &receipt, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// DeleteReceipt godoc
// @Summary Delete store receipt
// @Tags Inventory
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 204 {object} response.Envelope
// @Router /inventory/receipts/{id} [delete]
func (h *InventoryHandler) DeleteReceipt(c *gin.Context) {
	claims, _ := currentClaims(c)
	if err := h.inventory.DeleteReceipt(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transfer godoc
// @Summary Transfer stock from store to canteen
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body service.TransferRequest true "Transfer payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.inventory.Transfer(c.Request.Context(), req, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
