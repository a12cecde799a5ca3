package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// TransactionHandler exposes ledger endpoints: deposits, listing, reversal.
type TransactionHandler struct {
	transactions *service.TransactionService
	metrics      *service.MetricsService
}

// NewTransactionHandler constructs TransactionHandler.
func NewTransactionHandler(transactions *service.TransactionService, metrics *service.MetricsService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, metrics: metrics}
}

// List godoc
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Param range query string false "daily, weekly or monthly"
// @Param type query string false "Filter by type"
// @Param inmateId query string false "Filter by inmate number"
// @Param search query string false "Search remarks or inmate"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var filter models.TransactionFilter
	filter.Range = c.Query("range")
	filter.Type = c.Query("type")
	filter.InmateID = c.Query("inmateId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	transactions, pagination, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Recent godoc
// @Summary List recent purchases for the sales floor
// @Tags Transactions
// @Produce json
// @Param search query string false "Search remarks or inmate"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /pos/recent-purchases [get]
func (h *TransactionHandler) Recent(c *gin.Context) {
	filter := models.TransactionFilter{
		Type:   models.TransactionTypePurchase,
		Search: strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	transactions, pagination, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Get godoc
// @Summary Get transaction detail
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	transaction, err := h.transactions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}

// Deposit godoc
// @Summary Record a deposit into an inmate account
// @Description Credits the account, enforcing the custody-type monthly limit
// @Tags Transactions
// @Accept json
// @Produce json
// @Param payload body models.DepositRequest true "Deposit payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /transactions/deposits [post]
func (h *TransactionHandler) Deposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deposit payload"))
		return
	}

	claims, _ := currentClaims(c)
	transaction, err := h.transactions.Deposit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordDeposit()
	}
	response.Created(c, transaction)
}

// Withdraw godoc
// @Summary Record a withdrawal from an inmate account
// @Description Debits the account; the wallet must cover the full amount
// @Tags Transactions
// @Accept json
// @Produce json
// @Param payload body models.WithdrawalRequest true "Withdrawal payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /transactions/withdrawals [post]
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	var req models.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid withdrawal payload"))
		return
	}

	claims, _ := currentClaims(c)
	transaction, err := h.transactions.Withdraw(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transaction)
}

// Reverse godoc
// @Summary Reverse a transaction
// @Description Undoes a purchase, deposit, or withdrawal, restoring the balance
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transactions/{id}/reverse [post]
func (h *TransactionHandler) Reverse(c *gin.Context) {
	claims, _ := currentClaims(c)
	transaction, err := h.transactions.Reverse(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordReversal()
	}
	response.JSON(c, http.StatusOK, transaction, nil)
}
