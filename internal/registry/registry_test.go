package registry

import (
	"context"
	"fmt"
	"testing"

	"loyalty_wallet/internal/domain"

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
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.PushSubscription{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) domain.User {
	t.Helper()
	user := domain.User{Username: username}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestRegisterIdempotent(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	user := seedUser(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, user.ID, "tok-1", domain.TransportFCM))
	require.NoError(t, reg.Register(ctx, user.ID, "tok-1", domain.TransportFCM))

	subs, err := reg.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "tok-1", subs[0].Token)
}

func TestRegisterSupersedesLegacyClass(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	user := seedUser(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, user.ID, "old-web", domain.TransportWebPush))
	require.NoError(t, reg.Register(ctx, user.ID, "old-web-2", domain.TransportWebPush))
	require.NoError(t, reg.Register(ctx, user.ID, "new-fcm", domain.TransportFCM))

	subs, err := reg.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "new-fcm", subs[0].Token)
	require.Equal(t, domain.TransportFCM, subs[0].TransportClass)
}

func TestSupersessionScopedToUser(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, bob.ID, "bob-web", domain.TransportWebPush))
	require.NoError(t, reg.Register(ctx, alice.ID, "alice-fcm", domain.TransportFCM))

	// Alice's migration must not touch Bob's legacy endpoint
	subs, err := reg.Resolve(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "bob-web", subs[0].Token)
}

func TestRegisterUnknownTransport(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	user := seedUser(t, db, "alice")

	err := reg.Register(context.Background(), user.ID, "tok", "carrier-pigeon")
	require.ErrorIs(t, err, ErrUnknownTransport)
}

func TestResolveEmptyIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	user := seedUser(t, db, "alice")

	subs, err := reg.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestResolveAllIncludesEndpointlessUsers(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, alice.ID, "a-1", domain.TransportFCM))
	require.NoError(t, reg.Register(ctx, alice.ID, "a-2", domain.TransportFCM))
	require.NoError(t, reg.Register(ctx, carol.ID, "c-1", domain.TransportFCM))

	seen := map[uint]int{}
	var order []uint
	require.NoError(t, reg.ResolveAll(ctx, func(userID uint, subs []domain.PushSubscription) error {
		seen[userID] = len(subs)
		order = append(order, userID)
		return nil
	}))

	require.Equal(t, map[uint]int{alice.ID: 2, bob.ID: 0, carol.ID: 1}, seen)
	require.Equal(t, []uint{alice.ID, bob.ID, carol.ID}, order)
}

func TestResolveAllStopsOnCallbackError(t *testing.T) {
	db := openTestDB(t)
	reg := New(db)
	seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	calls := 0
	err := reg.ResolveAll(context.Background(), func(uint, []domain.PushSubscription) error {
		calls++
		return fmt.Errorf("stop")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
