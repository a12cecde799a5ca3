package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// POSHandler exposes the tuck-shop point of sale endpoints. Each operator
// works one cart at a time, keyed by their user ID.
type POSHandler struct {
	cart      *service.CartService
	inventory *service.InventoryService
	metrics   *service.MetricsService
}

// NewPOSHandler constructs POSHandler.
func NewPOSHandler(cart *service.CartService, inventory *service.InventoryService, metrics *service.MetricsService) *POSHandler {
	return &POSHandler{cart: cart, inventory: inventory, metrics: metrics}
}

// Catalog godoc
// @Summary Sellable catalog
// @Description Active canteen items available for sale
// @Tags POS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pos/catalog [get]
func (h *POSHandler) Catalog(c *gin.Context) {
	items, err := h.inventory.Catalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Cart godoc
// @Summary Current cart state
// @Tags POS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pos/cart [get]
func (h *POSHandler) Cart(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.cart.State(claims.UserID), nil)
}

// Lookup godoc
// @Summary Bind an inmate to the cart
// @Description Looks up the inmate and attaches their account to the operator's cart
// @Tags POS
// @Accept json
// @Produce json
// @Param payload body object true "Inmate number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pos/cart/lookup [post]
func (h *POSHandler) Lookup(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		InmateID string `json:"inmate_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "inmate number required"))
		return
	}

	state, err := h.cart.LookupInmate(c.Request.Context(), claims.UserID, payload.InmateID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// AddItem godoc
// @Summary Add one unit of an item to the cart
// @Tags POS
// @Accept json
// @Produce json
// @Param payload body object true "Product ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pos/cart/items [post]
func (h *POSHandler) AddItem(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "product id required"))
		return
	}

	state, err := h.cart.AddUnit(c.Request.Context(), claims.UserID, payload.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// RemoveItem godoc
// @Summary Remove one unit of an item from the cart
// @Tags POS
// @Produce json
// @Param productId path string true "Product ID"
// @Success 200 {object} response.Envelope
// @Router /pos/cart/items/{productId} [delete]
func (h *POSHandler) RemoveItem(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	state, err := h.cart.RemoveUnit(claims.UserID, c.Param("productId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// ClearCart godoc
// @Summary Empty the cart and unbind the inmate
// @Tags POS
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pos/cart [delete]
func (h *POSHandler) ClearCart(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.cart.Clear(claims.UserID), nil)
}

// Checkout godoc
// @Summary Checkout the cart
// @Description Debits the bound inmate's balance and deducts stock atomically
// @Tags POS
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /pos/cart/checkout [post]
func (h *POSHandler) Checkout(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	receipt, err := h.cart.Checkout(c.Request.Context(), claims.UserID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCheckout(receipt.TotalAmount)
	}
	response.Created(c, receipt)
}
