package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Window durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	JWTSecret       string        // JWT secret key
	SchedulerSecret string        // Shared secret for job trigger endpoints
	RedisAddr       string        // Redis server address
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	FCMEndpoint     string        // Push provider URL
	FCMServerKey    string        // Push provider authorization key
	CartQuietPeriod time.Duration // Cart inactivity before the abandoned-cart nudge
	CoinRetention   time.Duration // Coin lifetime from the last transaction
	CoinWarningLead time.Duration // Warning window before coin expiry
	JobWorkers      int           // Bounded parallelism for scans and broadcast
	IsProd          bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:         envOr("APP_PORT", "8080"),
		DBUser:          os.Getenv("DB_USER"),     // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"), // Database password
		DBHost:          os.Getenv("DB_HOST"),     // Database host
		DBPort:          os.Getenv("DB_PORT"),     // Database port
		DBName:          os.Getenv("DB_NAME"),     // Database name
		JWTSecret:       os.Getenv("JWT_SECRET"),  // JWT secret key
		SchedulerSecret: os.Getenv("SCHEDULER_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"), // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"), // Redis password
		RedisDB:         redisDB,                 // Redis database number
		FCMEndpoint:     envOr("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
		FCMServerKey:    os.Getenv("FCM_SERVER_KEY"),
		CartQuietPeriod: time.Duration(envInt("CART_QUIET_HOURS", 12)) * time.Hour,
		CoinRetention:   time.Duration(envInt("COIN_RETENTION_DAYS", 90)) * 24 * time.Hour,
		CoinWarningLead: time.Duration(envInt("COIN_WARNING_DAYS", 7)) * 24 * time.Hour,
		JobWorkers:      envInt("JOB_WORKERS", 8),
		IsProd:          os.Getenv("IS_PROD") == "true", // Is production environment
	}
}

// envOr returns the environment value or a default when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the environment value as int or a default when unset or
// not a positive number.
func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
