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

// InmateHandler exposes inmate directory endpoints.
type InmateHandler struct {
	inmates      *service.InmateService
	transactions *service.TransactionService
}

// NewInmateHandler constructs InmateHandler.
func NewInmateHandler(inmates *service.InmateService, transactions *service.TransactionService) *InmateHandler {
	return &InmateHandler{inmates: inmates, transactions: transactions}
}

// List godoc
// @Summary List inmates
// @Tags Inmates
// @Produce json
// @Param search query string false "Search by name or inmate number"
// @Param status query string false "Filter by status"
// @Param locationId query string false "Filter by location"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /inmates [get]
func (h *InmateHandler) List(c *gin.Context) {
	var filter models.InmateFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = c.Query("status")
	filter.LocationID = c.Query("locationId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	inmates, pagination, err := h.inmates.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inmates, pagination)
}

// Get godoc
// @Summary Get inmate detail
// @Tags Inmates
// @Produce json
// @Param inmateId path string true "Inmate ID"
// @Success 200 {object} response.Envelope
// @Router /inmates/{inmateId} [get]
func (h *InmateHandler) Get(c *gin.Context) {
	inmate, err := h.inmates.Get(c.Request.Context(), c.Param("inmateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inmate, nil)
}

// Lookup godoc
// @Summary Lookup inmate by inmate number
// @Tags Inmates
// @Produce json
// @Param inmateId path string true "Inmate number"
// @Success 200 {object} response.Envelope
// @Router /inmates/lookup/{inmateId} [get]
func (h *InmateHandler) Lookup(c *gin.Context) {
	inmate, err := h.inmates.Lookup(c.Request.Context(), c.Param("inmateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inmate, nil)
}

// Create godoc
// @Summary Create inmate
// @Tags Inmates
// @Accept json
// @Produce json
// @Param payload body models.Inmate true "Inmate payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /inmates [post]
func (h *InmateHandler) Create(c *gin.Context) {
	var inmate models.Inmate
	if err := c.ShouldBindJSON(&inmate); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inmate payload"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.inmates.Create(c.Request.Context(), &inmate, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inmate)
}

// Update godoc
// @Summary Update inmate
// @Tags Inmates
// @Accept json
// @Produce json
// @Param inmateId path string true "Inmate ID"
// @Param payload body models.Inmate true "Inmate payload"
// @Success 200 {object} response.Envelope
// @Router /inmates/{inmateId} [put]
func (h *InmateHandler) Update(c *gin.Context) {
	var inmate models.Inmate
	if err := c.ShouldBindJSON(&inmate); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inmate payload"))
		return
	}
	inmate.ID = c.Param("inmateId")

	claims, _ := currentClaims(c)
	if err := h.inmates.Update(c.Request.Context(), &inmate, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inmate, nil)
}

// Delete godoc
// @Summary Delete inmate
// @Tags Inmates
// @Produce json
// @Param inmateId path string true "Inmate ID"
// @Success 204 {object} response.Envelope
// @Router /inmates/{inmateId} [delete]
func (h *InmateHandler) Delete(c *gin.Context) {
	claims, _ := currentClaims(c)
	if err := h.inmates.Delete(c.Request.Context(), c.Param("inmateId"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enroll godoc
// @Summary Enroll biometric descriptor for inmate
// @Tags Inmates
// @Accept json
// @Produce json
// @Param inmateId path string true "Inmate ID"
// @Param payload body object true "Descriptor payload"
// @Success 204 {object} response.Envelope
// @Router /inmates/{inmateId}/biometrics [post]
func (h *InmateHandler) Enroll(c *gin.Context) {
	var payload struct {
		Descriptor models.Descriptor `json:"descriptor" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "descriptor required"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.inmates.Enroll(c.Request.Context(), c.Param("inmateId"), payload.Descriptor, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearBiometric godoc
// @Summary Remove the stored biometric descriptor for an inmate
// @Tags Inmates
// @Produce json
// @Param inmateId path string true "Inmate ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /inmates/{inmateId}/biometrics [delete]
func (h *InmateHandler) ClearBiometric(c *gin.Context) {
	claims, _ := currentClaims(c)
	if err := h.inmates.ClearBiometric(c.Request.Context(), c.Param("inmateId"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Identify godoc
// @Summary Identify inmate by biometric descriptor
// @Tags Inmates
// @Accept json
// @Produce json
// @Param payload body object true "Descriptor payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /inmates/identify [post]
func (h *InmateHandler) Identify(c *gin.Context) {
	var payload struct {
		Descriptor models.Descriptor `json:"descriptor" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "descriptor required"))
		return
	}

	inmate, err := h.inmates.Identify(c.Request.Context(), payload.Descriptor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inmate, nil)
}

// History godoc
// @Summary Transaction history for an inmate
// @Tags Inmates
// @Produce json
// @Param inmateId path string true "Inmate number"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /inmates/{inmateId}/history [get]
func (h *InmateHandler) History(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		limit = v
	}

	history, err := h.transactions.History(c.Request.Context(), c.Param("inmateId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
