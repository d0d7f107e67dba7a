package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/service"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
	ContextCredentialID = "credential_id"
	ContextSessionID    = "session_id"
	ContextClaims       = "claims"
)

// accessTokenFrom reads a Bearer token, falling back to the access cookie
func accessTokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	token, _ := c.Cookie(AccessTokenCookie)
	return token
}

// AuthMiddleware validates the access token and adds the claims to the context
func AuthMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authService.EnsureAuthenticated(c.Request.Context(), accessTokenFrom(c))
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}

		c.Set(ContextCredentialID, claims.CredentialID)
		c.Set(ContextSessionID, claims.SessionID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}
