package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/aeolius/pkg/httpx"
)

// Config is shared by the manager and the worker.
type Config struct {
	DatabaseFile        string        // Optional: path to SQLite database file (default: ./aeolius.db)
	MasterKeyPath       string        // Optional: file holding the refresh token encryption key, else AEOLIUS_MASTER_KEY
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 1337 manager, 1338 worker)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	AllowedOrigin   string   // Browser origin allowed by CORS (default: https://aeolius.p8.lu)
	AllowedServices []string // PDS URLs accepted by the manager; empty accepts any
}

// WorkerConfig adds the sweep settings to Config.
type WorkerConfig struct {
	Config

	APIKey                 string        // Required: bearer token for DELETE /posts
	SweepInterval          time.Duration // Sweep period, 0 disables periodic sweeps (default: 1h)
	RateLimitPointsGlobal  int           // Points per reset interval for this IP (default: 2500)
	RateLimitResetInterval time.Duration // Refill interval of the global budget (default: 5m)
	RateLimitPointsDID     int           // Points one account may use per sweep (default: 200)
	ListRecordsLimit       int           // Records per listRecords call (default: 100)
	ApplyWritesLimit       int           // Deletes per applyWrites call (default: 10)
	DryRun                 bool          // Only count posts to delete (default: true)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "aeolius.db"),
		MasterKeyPath:       os.Getenv("MASTER_KEY_PATH"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 1337),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		AllowedOrigin:       getEnvOrDefault("ALLOWED_ORIGIN", "https://aeolius.p8.lu"),
		AllowedServices:     httpx.SplitCommaList(os.Getenv("ALLOWED_SERVICES")),
	}
}

func LoadWorkerConfig() WorkerConfig {
	cfg := WorkerConfig{
		Config:                 LoadConfig(),
		APIKey:                 os.Getenv("WORKER_API_KEY"),
		SweepInterval:          getEnvDurationOrDefault("SWEEP_INTERVAL", 1*time.Hour),
		RateLimitPointsGlobal:  getEnvIntOrDefault("RATE_LIMIT_POINTS_GLOBAL", 2500),
		RateLimitResetInterval: getEnvDurationOrDefault("RATE_LIMIT_RESET_INTERVAL", 5*time.Minute),
		RateLimitPointsDID:     getEnvIntOrDefault("RATE_LIMIT_POINTS_DID", 200),
		ListRecordsLimit:       getEnvIntOrDefault("LIST_RECORDS_LIMIT", 100),
		ApplyWritesLimit:       getEnvIntOrDefault("APPLY_WRITES_LIMIT", 10),
		DryRun:                 getEnvBoolOrDefault("DRY_RUN", true),
	}
	cfg.Port = getEnvIntOrDefault("PORT", 1338)

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
