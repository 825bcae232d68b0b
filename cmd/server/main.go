package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging
	"net/http"
	"time"

	"loyalty_wallet/internal/api"        // Custom package for API handlers
	"loyalty_wallet/internal/config"     // Custom package for configuration
	"loyalty_wallet/internal/jobs"       // Scheduled job entry points
	"loyalty_wallet/internal/ledger"     // Ledger store
	"loyalty_wallet/internal/middleware" // Custom package for middleware
	"loyalty_wallet/internal/notify"     // Notification dispatch
	"loyalty_wallet/internal/registry"   // Subscription registry
	"loyalty_wallet/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logrus for structured logging
	"gorm.io/driver/mysql"                                    // MySQL driver for GORM
	"gorm.io/gorm"                                            // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire the loyalty core
	cache := utils.NewCache(redisClient)
	ledgerStore := ledger.NewStore(db, cache)
	reg := registry.New(db)
	sender := &notify.FCMSender{
		Endpoint:  cfg.FCMEndpoint,
		ServerKey: cfg.FCMServerKey,
		Client:    &http.Client{Timeout: 10 * time.Second}, // Per-call transport timeout
	}
	dispatcher := notify.NewDispatcher(db, reg, sender, 50, cfg.JobWorkers)
	scanner := jobs.NewScanner(db, ledgerStore, dispatcher, jobs.ScannerConfig{
		QuietPeriod: cfg.CartQuietPeriod,
		Retention:   cfg.CoinRetention,
		WarningLead: cfg.CoinWarningLead,
		Workers:     cfg.JobWorkers,
	})

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Job trigger routes (protected by the scheduler shared secret)
	jobGroup := r.Group("/jobs")
	jobGroup.Use(middleware.SchedulerSecretMiddleware(cfg.SchedulerSecret))
	jobGroup.POST("/abandoned-carts", api.JobHandler("abandoned_cart", scanner.RunAbandonedCartScan)) // Abandoned-cart scan
	jobGroup.POST("/coin-expiry", api.JobHandler("coin_expiry", scanner.RunCoinExpiryScan))           // Coin-expiry scan
	jobGroup.POST("/coupon-cleanup", api.JobHandler("coupon_cleanup", scanner.RunCouponCleanup))      // Coupon cleanup

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.GET("", api.GetWalletHandler(ledgerStore, cache)) // Wallet read endpoint

	// Subscription registration (protected by JWT)
	notifGroup := r.Group("/notifications")
	notifGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	notifGroup.POST("/subscribe", api.SubscribeHandler(reg)) // Device registration endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.POST("/broadcast", api.BroadcastHandler(dispatcher)) // Broadcast endpoint

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
