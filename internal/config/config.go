package config

import (
	"os"
	"strconv"
	"time"

	"parterre/internal/database"
	"parterre/internal/external"
	"parterre/internal/idempotency"
	"parterre/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Reservation protocol knobs
	HoldDuration   time.Duration
	ReaperInterval time.Duration
	ConfirmTimeout time.Duration

	Database    database.Config
	NATS        messaging.Config
	Idempotency idempotency.Config
	ValkeyAddr  string
	ValkeyPass  string
	Demand      external.DemandConfig
	Payment     external.PaymentConfig
}

// Load reads configuration from the environment. A .env file is honored when
// present so local runs do not need exported variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		HoldDuration:   time.Duration(getEnvInt("HOLD_DURATION_SEC", 600)) * time.Second,
		ReaperInterval: time.Duration(getEnvInt("REAPER_INTERVAL_SEC", 5)) * time.Second,
		ConfirmTimeout: time.Duration(getEnvInt("CONFIRM_TIMEOUT_SEC", 15)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "parterre"),
			Password:           getEnv("DB_PASSWORD", "parterre123"),
			DBName:             getEnv("DB_NAME", "parterre"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "parterre"),
			ClientID:  getEnv("NATS_CLIENT_ID", "parterre-api"),
		},

		Idempotency: idempotency.Config{
			Retention:    time.Duration(getEnvInt("IDEMPOTENCY_RETENTION_HOURS", 24)) * time.Hour,
			WaitTimeout:  time.Duration(getEnvInt("IDEMPOTENCY_WAIT_TIMEOUT_MS", 3000)) * time.Millisecond,
			PollInterval: time.Duration(getEnvInt("IDEMPOTENCY_POLL_INTERVAL_MS", 50)) * time.Millisecond,
		},

		ValkeyAddr: getEnv("VALKEY_ADDR", "localhost:6379"),
		ValkeyPass: getEnv("VALKEY_PASSWORD", ""),

		Demand: external.DemandConfig{
			BaseURL: getEnv("DEMAND_SERVICE_URL", "http://localhost:9090/demand"),
			Timeout: time.Duration(getEnvInt("DEMAND_TIMEOUT_SEC", 2)) * time.Second,
		},

		Payment: external.PaymentConfig{
			BaseURL: getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9091/payments"),
			Timeout: time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
