package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// LocationHandler exposes facility location and client scope endpoints.
type LocationHandler struct {
	locations *service.LocationService
	backup    *service.BackupService
}

// NewLocationHandler constructs LocationHandler. The backup service is
// optional; when present a snapshot is queued whenever the backup path
// changes.
func NewLocationHandler(locations *service.LocationService, backup *service.BackupService) *LocationHandler {
	return &LocationHandler{locations: locations, backup: backup}
}

// List godoc
// @Summary List locations
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations [get]
func (h *LocationHandler) List(c *gin.Context) {
	locations, err := h.locations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// Get godoc
// @Summary Get location detail
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [get]
func (h *LocationHandler) Get(c *gin.Context) {
	location, err := h.locations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Create godoc
// @Summary Create location
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body models.Location true "Location payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	var location models.Location
	if err := c.ShouldBindJSON(&location); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload"))
		return
	}

	claims, _ := currentClaims(c)
	if err := h.locations.Create(c.Request.Context(), &location, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, location)
}

// Update godoc
// @Summary Update location
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param payload body models.Location true "Location payload"
// @Success 200 {object} response.Envelope
// @Router /locations/{id} [put]
func (h *LocationHandler) Update(c *gin.Context) {
	var location models.Location
	if err := c.ShouldBindJSON(&location); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid location payload"))
		return
	}
	location.ID = c.Param("id")

	claims, _ := currentClaims(c)
	if err := h.locations.Update(c.Request.Context(), &location, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Delete godoc
// @Summary Delete location
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 204 {object} response.Envelope
// @Router /locations/{id} [delete]
func (h *LocationHandler) Delete(c *gin.Context) {
	claims, _ := currentClaims(c)
	if err := h.locations.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Scope godoc
// @Summary Get current client scope
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scope [get]
func (h *LocationHandler) Scope(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	scope, err := h.locations.Scope(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scope, nil)
}

// SelectLocation godoc
// @Summary Select working location for current client
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body object true "Location selection"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scope/location [put]
func (h *LocationHandler) SelectLocation(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		LocationID string `json:"location_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "location id required"))
		return
	}

	scope, err := h.locations.SelectLocation(c.Request.Context(), claims.UserID, payload.LocationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scope, nil)
}

// SetBackupPath godoc
// @Summary Set backup destination for current client
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body object true "Backup path"
// @Success 200 {object} response.Envelope
// @Router /scope/backup-path [put]
func (h *LocationHandler) SetBackupPath(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "backup path required"))
		return
	}

	scope, err := h.locations.SetBackupPath(c.Request.Context(), claims.UserID, payload.Path)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.backup != nil {
		if err := h.backup.Enqueue(payload.Path); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.JSON(c, http.StatusOK, scope, nil)
}
