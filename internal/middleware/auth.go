package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codewiz073-droid/bwami/internal/auth"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

const (
	ContextUserID  = "user_id"
	ContextIsGuest = "is_guest"
)

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(service *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, service)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsGuest, claims.IsGuest)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present but lets
// anonymous requests through. The ask endpoints work without an account.
func OptionalAuth(service *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, service); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextIsGuest, claims.IsGuest)
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context, service *auth.Service) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return nil, false
	}

	claims, err := service.ParseToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// UserID returns the authenticated user ID from the request context.
func UserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}
