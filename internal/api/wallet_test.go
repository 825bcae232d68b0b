package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loyalty_wallet/internal/api"
	"loyalty_wallet/internal/domain"
	"loyalty_wallet/internal/ledger"
	"loyalty_wallet/internal/middleware"
	"loyalty_wallet/internal/registry"
	"loyalty_wallet/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	db     *gorm.DB
	cache  *utils.Cache
	ledger *ledger.Store
	router *gin.Engine
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.CoinTransaction{}, &domain.PushSubscription{}))

	mr := miniredis.RunT(t)
	cache := utils.NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := ledger.NewStore(db, cache)

	router := gin.New()
	authed := router.Group("/")
	authed.Use(middleware.JWTAuthMiddleware(testJWTSecret))
	authed.GET("/wallet", api.GetWalletHandler(store, cache))
	authed.POST("/notifications/subscribe", api.SubscribeHandler(registry.New(db)))

	return &testEnv{db: db, cache: cache, ledger: store, router: router}
}

func (e *testEnv) doRequest(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func seedUserWithToken(t *testing.T, env *testEnv) (domain.User, string) {
	t.Helper()
	user := domain.User{Username: "alice", Tier: domain.TierBronze}
	require.NoError(t, env.db.Create(&user).Error)
	token, err := utils.GenerateJWT(user.ID, testJWTSecret)
	require.NoError(t, err)
	return user, token
}

type walletResponse struct {
	Wallet struct {
		Balance      int64                    `json:"balance"`
		Tier         string                   `json:"tier"`
		TotalSpent   int64                    `json:"total_spent"`
		Transactions []domain.CoinTransaction `json:"transactions"`
	} `json:"wallet"`
	Cached bool `json:"cached"`
}

func TestGetWalletRequiresAuth(t *testing.T) {
	env := setupTest(t)

	w := env.doRequest(t, http.MethodGet, "/wallet", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetWalletReadThroughCache(t *testing.T) {
	env := setupTest(t)
	user, token := seedUserWithToken(t, env)
	ctx := context.Background()

	_, err := env.ledger.Credit(ctx, user.ID, 100, "signup bonus")
	require.NoError(t, err)
	_, err = env.ledger.Debit(ctx, user.ID, 30, "redeemed")
	require.NoError(t, err)

	// First read misses the cache and fills it
	w := env.doRequest(t, http.MethodGet, "/wallet", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var first walletResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.False(t, first.Cached)
	require.Equal(t, int64(70), first.Wallet.Balance)
	require.Equal(t, int64(100), first.Wallet.TotalSpent)
	require.Len(t, first.Wallet.Transactions, 2)

	// Second read is served from the cache
	w = env.doRequest(t, http.MethodGet, "/wallet", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var second walletResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.True(t, second.Cached)
	require.Equal(t, first.Wallet.Balance, second.Wallet.Balance)

	// A ledger mutation invalidates the cached read
	_, err = env.ledger.Credit(ctx, user.ID, 5, "comeback")
	require.NoError(t, err)
	w = env.doRequest(t, http.MethodGet, "/wallet", "", token)
	var third walletResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &third))
	require.False(t, third.Cached)
	require.Equal(t, int64(75), third.Wallet.Balance)
}

func TestGetWalletUnknownUser(t *testing.T) {
	env := setupTest(t)
	token, err := utils.GenerateJWT(4242, testJWTSecret)
	require.NoError(t, err)

	w := env.doRequest(t, http.MethodGet, "/wallet", "", token)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeRegistersDevice(t *testing.T) {
	env := setupTest(t)
	user, token := seedUserWithToken(t, env)

	w := env.doRequest(t, http.MethodPost, "/notifications/subscribe", `{"token":"dev-1","type":"fcm"}`, token)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&domain.PushSubscription{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubscribeRejectsUnsupportedType(t *testing.T) {
	env := setupTest(t)
	_, token := seedUserWithToken(t, env)

	w := env.doRequest(t, http.MethodPost, "/notifications/subscribe", `{"token":"dev-1","type":"webpush"}`, token)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doRequest(t, http.MethodPost, "/notifications/subscribe", `{"token":"dev-1"}`, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeRequiresAuth(t *testing.T) {
	env := setupTest(t)

	w := env.doRequest(t, http.MethodPost, "/notifications/subscribe", `{"token":"dev-1","type":"fcm"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
