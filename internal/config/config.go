// Package config provides application configuration management,
// loading settings from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Service configuration
	ServiceName string
	Environment string
	GRPCPort    string
	HTTPPort    string

	// Database configuration
	DatabaseEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	// OpenRouteService configuration
	ORSAPIKey  string
	ORSBaseURL string
	ORSProfile string
	ORSTimeout time.Duration

	// Route generation
	RouteWorkers     int
	RouteCacheSize   int
	RouteCacheTTL    time.Duration
	RouteRandomSeed  uint64
	MaxRouteDistance float64

	// Heading smoothing
	HeadingBufferSize int
	HeadingThreshold  float64
	HeadingMode       string

	// OpenTelemetry configuration
	TracingEnabled   bool
	OTELEndpoint     string
	TraceSampleRatio float64

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "walkroute"),
		Environment: getEnv("ENVIRONMENT", "development"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "192.168.1.175"),
		PostgresPort:     getEnv("POSTGRES_PORT", "6432"),
		PostgresDB:       getEnv("POSTGRES_DB", "owntracks"),
		PostgresUser:     getEnv("POSTGRES_USER", "development"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "development"),

		ORSAPIKey:  getEnv("ORS_API_KEY", ""),
		ORSBaseURL: getEnv("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSProfile: getEnv("ORS_PROFILE", "foot-walking"),

		HeadingMode: getEnv("HEADING_MODE", "linear"),

		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.DatabaseEnabled, err = parseBool("DATABASE_ENABLED", "true"); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_ENABLED: %w", err)
	}
	if cfg.TracingEnabled, err = parseBool("OTEL_ENABLED", "false"); err != nil {
		return nil, fmt.Errorf("invalid OTEL_ENABLED: %w", err)
	}
	if cfg.TraceSampleRatio, err = parseFloat("OTEL_TRACES_SAMPLER_ARG", "1"); err != nil {
		return nil, fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG: %w", err)
	}
	if cfg.ORSTimeout, err = parseDuration("ORS_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid ORS_TIMEOUT: %w", err)
	}
	if cfg.RouteWorkers, err = parseInt("ROUTE_WORKERS", "4"); err != nil {
		return nil, fmt.Errorf("invalid ROUTE_WORKERS: %w", err)
	}
	if cfg.RouteCacheSize, err = parseInt("ROUTE_CACHE_SIZE", "256"); err != nil {
		return nil, fmt.Errorf("invalid ROUTE_CACHE_SIZE: %w", err)
	}
	if cfg.RouteCacheTTL, err = parseDuration("ROUTE_CACHE_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid ROUTE_CACHE_TTL: %w", err)
	}
	if cfg.RouteRandomSeed, err = strconv.ParseUint(getEnv("ROUTE_RANDOM_SEED", "0"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid ROUTE_RANDOM_SEED: %w", err)
	}
	if cfg.MaxRouteDistance, err = parseFloat("MAX_ROUTE_DISTANCE_M", "100000"); err != nil {
		return nil, fmt.Errorf("invalid MAX_ROUTE_DISTANCE_M: %w", err)
	}
	if cfg.HeadingBufferSize, err = parseInt("HEADING_BUFFER_SIZE", "5"); err != nil {
		return nil, fmt.Errorf("invalid HEADING_BUFFER_SIZE: %w", err)
	}
	if cfg.HeadingThreshold, err = parseFloat("HEADING_THRESHOLD_DEG", "5"); err != nil {
		return nil, fmt.Errorf("invalid HEADING_THRESHOLD_DEG: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RouteWorkers < 1 {
		return fmt.Errorf("invalid ROUTE_WORKERS: must be at least 1, got %d", c.RouteWorkers)
	}
	if c.HeadingBufferSize < 1 {
		return fmt.Errorf("invalid HEADING_BUFFER_SIZE: must be at least 1, got %d", c.HeadingBufferSize)
	}
	if c.HeadingThreshold < 0 {
		return fmt.Errorf("invalid HEADING_THRESHOLD_DEG: must not be negative, got %v", c.HeadingThreshold)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG: must be within [0,1], got %v", c.TraceSampleRatio)
	}
	switch c.HeadingMode {
	case "linear", "circular":
	default:
		return fmt.Errorf("invalid HEADING_MODE: %q (want linear or circular)", c.HeadingMode)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresUser,
		c.PostgresPassword,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseFloat parses a float64 from an environment variable or default value
func parseFloat(key, defaultValue string) (float64, error) {
	value := getEnv(key, defaultValue)
	return strconv.ParseFloat(value, 64)
}

func parseInt(key, defaultValue string) (int, error) {
	return strconv.Atoi(getEnv(key, defaultValue))
}

func parseBool(key, defaultValue string) (bool, error) {
	return strconv.ParseBool(getEnv(key, defaultValue))
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnv(key, defaultValue))
}
