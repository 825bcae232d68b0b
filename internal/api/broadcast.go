package api

import (
	"net/http" // HTTP status codes

	"loyalty_wallet/internal/notify" // Notification dispatch

	"github.com/gin-gonic/gin" // Gin web framework
)

// BroadcastRequest represents an administrative broadcast
type BroadcastRequest struct {
	Title   string `json:"title" binding:"required"`   // Notification title, required
	Message string `json:"message" binding:"required"` // Notification body, required
	Link    string `json:"link"`                       // Optional link, defaults to the root path
}

// BroadcastHandler sends a message to every user. Admin-only; responds
// with the aggregate attempted/delivered/failed counts, never a per-item
// error stack.
func BroadcastHandler(dispatcher *notify.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BroadcastRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title and message are required"})
			return
		}
		report, err := dispatcher.BroadcastToAll(c.Request.Context(), req.Title, req.Message, req.Link)
		if err != nil {
			// Top-level failure only; per-user failures are inside the report
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Broadcast failed"})
			return
		}
		// Return the aggregate counts
		c.JSON(http.StatusOK, gin.H{
			"attempted": report.Attempted, // Users reached for
			"delivered": report.Delivered, // Fully delivered users
			"failed":    report.Failed,    // Users with failures
		})
	}
}
