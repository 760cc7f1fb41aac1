package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName       = "AroosiOnboarding"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultSnapshotTTL   = 72 * time.Hour
	defaultMaxImageBytes = 5 << 20
	defaultMinDimension  = 200
	defaultMinAspect     = 0.5
	defaultMaxAspect     = 2.0
	defaultStagingLimit  = 20

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	snapshotTTLEnvVar      = "SNAPSHOT_TTL"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	BackendBaseURL  string
	BackendAPIToken string
	TokenSecret     string
	ShutdownPeriod  time.Duration

	// Wizard state snapshots expire if the user abandons the flow.
	SnapshotTTL time.Duration

	// Image guard thresholds applied before any remote call.
	MaxImageBytes     int64
	MinImageDimension int
	MinAspectRatio    float64
	MaxAspectRatio    float64

	// StagingRateLimit caps image staging requests per session per minute.
	StagingRateLimit int
}

// Load reads configuration from the environment (with optional .env file) and
// validates required values.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		BackendBaseURL:    os.Getenv("BACKEND_BASE_URL"),
		BackendAPIToken:   os.Getenv("BACKEND_API_TOKEN"),
		TokenSecret:       os.Getenv("TOKEN_SECRET"),
		ShutdownPeriod:    defaultShutdownDelay,
		SnapshotTTL:       defaultSnapshotTTL,
		MaxImageBytes:     defaultMaxImageBytes,
		MinImageDimension: defaultMinDimension,
		MinAspectRatio:    defaultMinAspect,
		MaxAspectRatio:    defaultMaxAspect,
		StagingRateLimit:  defaultStagingLimit,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(snapshotTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", snapshotTTLEnvVar, err)
		}
		cfg.SnapshotTTL = d
	}

	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAX_IMAGE_BYTES: %w", err)
		}
		cfg.MaxImageBytes = n
	}

	if v := os.Getenv("STAGING_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STAGING_RATE_LIMIT: %w", err)
		}
		cfg.StagingRateLimit = n
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.BackendBaseURL == "" {
		return Config{}, fmt.Errorf("BACKEND_BASE_URL must be set")
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET must be set")
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
