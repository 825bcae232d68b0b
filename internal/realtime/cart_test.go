package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"loyalty_wallet/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func TestCartTouchedResetsGuardFlag(t *testing.T) {
	db := openTestDB(t)
	stale := time.Now().Add(-24 * time.Hour)
	user := domain.User{
		Username:          "alice",
		CartItemCount:     1,
		CartUpdatedAt:     &stale,
		AbandonedCartFlag: domain.FlagFlagged,
	}
	require.NoError(t, db.Create(&user).Error)

	sync := NewCartSync(db, nil) // No realtime channel wired
	require.NoError(t, sync.CartTouched(context.Background(), user.ID, 3))

	var got domain.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.Equal(t, domain.FlagNormal, got.AbandonedCartFlag)
	require.Equal(t, 3, got.CartItemCount)
	require.NotNil(t, got.CartUpdatedAt)
	require.True(t, got.CartUpdatedAt.After(stale))
}

func TestCartTouchedPublishesHint(t *testing.T) {
	db := openTestDB(t)
	user := domain.User{Username: "alice"}
	require.NoError(t, db.Create(&user).Error)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, ChannelFor(user.ID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx) // Wait for the subscription to be live
	require.NoError(t, err)

	sync := NewCartSync(db, rdb)
	require.NoError(t, sync.CartTouched(ctx, user.ID, 2))

	select {
	case msg := <-sub.Channel():
		var hint struct {
			UserID    uint `json:"user_id"`
			ItemCount int  `json:"item_count"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &hint))
		require.Equal(t, user.ID, hint.UserID)
		require.Equal(t, 2, hint.ItemCount)
	case <-time.After(2 * time.Second):
		t.Fatal("no cart hint received")
	}
}
