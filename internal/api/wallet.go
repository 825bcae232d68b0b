package api

import (
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"time"     // Cache TTL

	"loyalty_wallet/internal/ledger" // Ledger store
	"loyalty_wallet/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// walletCacheTTL bounds staleness of the cached wallet read; mutations
// invalidate the key eagerly anyway.
const walletCacheTTL = 60 * time.Second

// GetWalletHandler returns the loyalty wallet read model for the
// authenticated user: balance, tier, lifetime total and the last 20
// transactions, served read-through from the cache.
func GetWalletHandler(store *ledger.Store, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.WalletKey(userID.(uint)) // Cache key for the wallet read
		var summary ledger.WalletSummary
		found, err := cache.Get(ctx, cacheKey, &summary) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": summary, "cached": true})
			return
		}
		// If not in cache, build from the ledger
		summary, err = store.Summary(ctx, userID.(uint))
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				// Return not found if the user doesn't exist
				c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		_ = cache.Set(ctx, cacheKey, summary, walletCacheTTL)             // Cache the wallet read
		c.JSON(http.StatusOK, gin.H{"wallet": summary, "cached": false}) // Return wallet info
	}
}
