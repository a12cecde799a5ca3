package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// NavigationHandler exposes the role-aware screen routing table.
type NavigationHandler struct {
	navigation *service.NavigationService
}

// NewNavigationHandler constructs NavigationHandler.
func NewNavigationHandler(navigation *service.NavigationService) *NavigationHandler {
	return &NavigationHandler{navigation: navigation}
}

// Screens godoc
// @Summary List screens for current role
// @Tags Navigation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /navigation/screens [get]
func (h *NavigationHandler) Screens(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"screens":       h.navigation.ScreensFor(claims.Role),
		"default_route": h.navigation.DefaultRoute(claims.Role),
	}, nil)
}

// Resolve godoc
// @Summary Resolve a requested route for current role
// @Description Returns the requested route when permitted, or the role's default route
// @Tags Navigation
// @Produce json
// @Param path query string false "Requested route"
// @Success 200 {object} response.Envelope
// @Router /navigation/resolve [get]
func (h *NavigationHandler) Resolve(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requested := c.Query("path")
	response.JSON(c, http.StatusOK, gin.H{
		"requested": requested,
		"route":     h.navigation.Resolve(claims.Role, requested),
	}, nil)
}
