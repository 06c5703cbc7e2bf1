// Package middleware holds the gin middleware shared by the API routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scrape-portal/internal/auth"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
)

// CookieName is the cookie the login handler stores the token in.
const CookieName = "auth_token"

// AuthMiddleware accepts a token from the Authorization header or the
// auth_token cookie and stores the caller's id and email in the context.
func AuthMiddleware(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(CookieName)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
