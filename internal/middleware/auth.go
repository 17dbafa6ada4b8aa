package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caresync/portal-api/internal/handler"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/service/auth"
	apperrors "github.com/caresync/portal-api/pkg/errors"
)

const ContextClaims = "claims"

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the bearer token and sets the identity claims in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse(apperrors.CodeAuth, "missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse(apperrors.CodeAuth, "invalid authorization format"))
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse(apperrors.CodeAuth, "invalid or expired token"))
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				handler.NewErrorResponse(apperrors.CodeAuth, "authentication required"))
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			handler.NewErrorResponse(apperrors.CodeForbidden, "insufficient role"))
	}
}

// ClaimsFromContext returns the identity claims set by Authenticate.
func ClaimsFromContext(c *gin.Context) (*model.TokenClaims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*model.TokenClaims)
	return claims, ok
}
