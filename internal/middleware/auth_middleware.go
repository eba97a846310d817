package middleware

import (
	"net/http"
	"strings"

	"ridepool/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and puts the user's identity on
// the request context.
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("current_role", claims.CurrentRole)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// DriverRequired gates routes to accounts currently acting as drivers.
func DriverRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("current_role")
		if !exists || role != "DRIVER" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Driver role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
