package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SaadNasir-Drago/Zolo/internal/auth"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyEmail holds the key for the caller's email in Gin context.
	ContextKeyEmail = "email"
)

const (
	msgNoToken      = "No token provided, authorization denied"
	msgInvalidToken = "Token is not valid"
)

// TokenSource says where a request may carry its token besides the Authorization header.
type TokenSource struct {
	CookieName string
	QueryParam string // Only set for the WebSocket upgrade
}

// extractToken reads the Bearer header, then the cookie, then the query parameter.
func extractToken(c *gin.Context, src TokenSource) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if src.CookieName != "" {
		if cookie, err := c.Cookie(src.CookieName); err == nil && cookie != "" {
			return cookie
		}
	}
	if src.QueryParam != "" {
		return c.Query(src.QueryParam)
	}
	return ""
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string, src TokenSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, src)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgNoToken})
			return
		}

		identity, err := auth.ValidateJWT(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgInvalidToken})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and never aborts.
func OptionalAuth(jwtSecret string, src TokenSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c, src); token != "" {
			if identity, err := auth.ValidateJWT(token, jwtSecret); err == nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, identity *auth.Identity) {
	c.Set(ContextKeyUserID, identity.UserID)
	c.Set(ContextKeyEmail, identity.Email)
}

// UserID returns the authenticated caller's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
