package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/pkg/jwt"
)

// JWTAuth requires a valid owner session token. Routes behind it are
// owner-only (magic link management, site administration).
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifyBearer(c, jwtManager)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, http.StatusUnauthorized, "Token expired", err)
			} else {
				common.ErrorResponse(c, http.StatusUnauthorized, "Invalid or missing token", err)
			}
			c.Abort()
			return
		}

		c.Set("ownerID", claims.UserID)
		c.Next()
	}
}

func verifyBearer(c *gin.Context, jwtManager *jwt.Manager) (*jwt.OwnerClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, jwt.ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, jwt.ErrInvalidToken
	}

	return jwtManager.VerifyToken(parts[1])
}

// GetOwnerID extracts the authenticated owner ID from context
func GetOwnerID(c *gin.Context) string {
	ownerID, exists := c.Get("ownerID")
	if !exists {
		return ""
	}
	if str, ok := ownerID.(string); ok {
		return str
	}
	return ""
}
