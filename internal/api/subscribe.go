package api

import (
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes

	"loyalty_wallet/internal/domain"   // Importing domain models
	"loyalty_wallet/internal/registry" // Subscription registry

	"github.com/gin-gonic/gin" // Gin web framework
)

// SubscribeRequest represents a device registration
type SubscribeRequest struct {
	Token string `json:"token" binding:"required"` // Opaque device push token
	Type  string `json:"type" binding:"required"`  // Delivery class, must equal the supported class
}

// SubscribeHandler registers a push endpoint for the authenticated user.
// The identity credential was already verified by the JWT middleware.
func SubscribeHandler(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SubscribeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token and type are required"})
			return
		}
		// Only the current delivery class is accepted from clients
		if req.Type != domain.TransportFCM {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported subscription type"})
			return
		}
		if err := reg.Register(c.Request.Context(), userID.(uint), req.Token, req.Type); err != nil {
			if errors.Is(err, registry.ErrUnknownTransport) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported subscription type"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
			return
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Device registered"})
	}
}
