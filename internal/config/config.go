package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "SpareFlow"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	defaultCarrierTimeout    = 40 * time.Second
	defaultCarrierAttempts   = 3
	defaultCarrierRetryDelay = 2 * time.Second
	defaultBatchCallDelay    = 500 * time.Millisecond
	defaultBaseRatePaise     = int64(9000) // ₹90 per box when no pricing rule applies
)

// Config captures application runtime configuration loaded from environment
// variables. It is built once in main and passed by reference; nothing in the
// codebase reads the environment after startup.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Carrier gateway settings.
	CarrierBaseURL    string
	CarrierAPIKey     string
	CarrierTimeout    time.Duration
	CarrierAttempts   int
	CarrierRetryDelay time.Duration

	// Delay between consecutive carrier calls inside one batch booking, to
	// respect the carrier's rate limits.
	BatchCallDelay time.Duration

	// Pickup origin stamped onto every carrier booking.
	OriginName    string
	OriginAddress string
	OriginPincode string

	// System default per-box rate in paise, used when no pricing rule matches.
	DefaultBaseRatePaise int64
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:              getEnv("APP_NAME", defaultAppName),
		AppEnv:               getEnv("APP_ENV", defaultAppEnv),
		Port:                 getEnv("PORT", defaultPort),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		ShutdownPeriod:       defaultShutdownDelay,
		IdempotencyTTL:       defaultIdempotencyTTL,
		CarrierBaseURL:       os.Getenv("CARRIER_BASE_URL"),
		CarrierAPIKey:        os.Getenv("CARRIER_API_KEY"),
		CarrierTimeout:       defaultCarrierTimeout,
		CarrierAttempts:      defaultCarrierAttempts,
		CarrierRetryDelay:    defaultCarrierRetryDelay,
		BatchCallDelay:       defaultBatchCallDelay,
		OriginName:           getEnv("ORIGIN_NAME", "SpareFlow Warehouse"),
		OriginAddress:        os.Getenv("ORIGIN_ADDRESS"),
		OriginPincode:        getEnv("ORIGIN_PINCODE", "411019"),
		DefaultBaseRatePaise: defaultBaseRatePaise,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.CarrierTimeout, err = durationEnv("CARRIER_TIMEOUT", cfg.CarrierTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CarrierRetryDelay, err = durationEnv("CARRIER_RETRY_DELAY", cfg.CarrierRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.BatchCallDelay, err = durationEnv("BATCH_CALL_DELAY", cfg.BatchCallDelay); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("CARRIER_MAX_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 1 {
			return Config{}, fmt.Errorf("invalid CARRIER_MAX_ATTEMPTS: %q", v)
		}
		cfg.CarrierAttempts = attempts
	}

	if v := os.Getenv("DEFAULT_BASE_RATE_PAISE"); v != "" {
		rate, err := strconv.ParseInt(v, 10, 64)
		if err != nil || rate <= 0 {
			return Config{}, fmt.Errorf("invalid DEFAULT_BASE_RATE_PAISE: %q", v)
		}
		cfg.DefaultBaseRatePaise = rate
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the process runs in a development environment, where
// in-memory stores may substitute for Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
