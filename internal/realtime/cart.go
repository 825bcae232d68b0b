package realtime

import (
	"context"       // Context for storage and Redis operations
	"encoding/json" // Hint payload encoding
	"strconv"       // Channel name construction
	"time"          // Cart timestamps

	"loyalty_wallet/internal/domain" // Importing domain models

	"github.com/redis/go-redis/v9" // Redis pub/sub
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CartSync is the cart-mutation collaborator's server-side half. Every
// cart write resets the abandoned-cart guard flag (the reset transition
// the scan relies on) and publishes a best-effort refresh hint on the
// user's realtime channel. The hint is cache invalidation, not a source of
// truth: publish errors are logged and dropped.
type CartSync struct {
	db  *gorm.DB      // User record storage
	rdb *redis.Client // Realtime channel, may be nil
}

// NewCartSync wires the collaborator.
func NewCartSync(db *gorm.DB, rdb *redis.Client) *CartSync {
	return &CartSync{db: db, rdb: rdb}
}

// cartHint is the payload broadcast on the per-user channel.
type cartHint struct {
	UserID    uint  `json:"user_id"`    // Cart owner
	ItemCount int   `json:"item_count"` // New cart size
	Touched   int64 `json:"touched"`    // Unix millis of the mutation
}

// ChannelFor returns the per-user realtime channel name.
func ChannelFor(userID uint) string {
	return "cart:user:" + strconv.Itoa(int(userID))
}

// CartTouched records a cart mutation: updates the cart fields, moves the
// abandoned-cart guard back to Normal, and hints downstream consumers to
// refresh their local view.
func (c *CartSync) CartTouched(ctx context.Context, userID uint, itemCount int) error {
	now := time.Now()
	if err := c.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"cart_item_count":     itemCount,
			"cart_updated_at":     now,
			"abandoned_cart_flag": domain.FlagNormal, // Reset transition for the abandoned-cart condition
		}).Error; err != nil {
		return err
	}
	c.publish(ctx, cartHint{UserID: userID, ItemCount: itemCount, Touched: now.UnixMilli()})
	return nil
}

// publish sends the hint, best-effort.
func (c *CartSync) publish(ctx context.Context, hint cartHint) {
	if c.rdb == nil {
		return
	}
	payload, err := json.Marshal(hint)
	if err != nil {
		return
	}
	if err := c.rdb.Publish(ctx, ChannelFor(hint.UserID), payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": hint.UserID, "error": err.Error()}).Debug("Cart hint publish failed")
	}
}
