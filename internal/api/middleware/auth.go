package middleware

import (
	"strings"

	"elevator-memo/internal/authz"
	"elevator-memo/internal/config"
	"elevator-memo/internal/models"
	"elevator-memo/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the bearer token and re-checks that the account is
// still active, so a deactivated user's outstanding tokens stop working.
func AuthMiddleware(authService *services.AuthService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, ok := claims["user_id"].(float64)
		if !ok {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		user, err := authService.GetActiveUser(uint(userID))
		if err != nil {
			c.JSON(401, gin.H{"error": "User not found or deactivated"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("caller", authz.Caller{ID: user.ID, Role: user.Role})

		c.Next()
	}
}

// RequireAdmin gates a route to administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if user.(*models.User).Role != models.RoleAdmin {
			c.JSON(403, gin.H{"error": "Forbidden: admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Caller returns the authenticated caller set by AuthMiddleware.
func Caller(c *gin.Context) authz.Caller {
	caller, _ := c.Get("caller")
	return caller.(authz.Caller)
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	user, _ := c.Get("user")
	return user.(*models.User)
}
