package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/middleware"
	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

// currentClaims pulls the authenticated user's claims from the gin context.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// currentToken pulls the raw bearer token from the gin context.
func currentToken(c *gin.Context) (string, bool) {
	value, ok := c.Get(middleware.ContextTokenKey)
	if !ok {
		return "", false
	}
	token, ok := value.(string)
	return token, ok
}
