package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Services ServicesConfig
	Timeouts TimeoutConfig
	Catalog  CatalogConfig
	Sessions SessionConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// ServicesConfig holds the external service endpoints. Tests substitute
// these with httptest servers.
type ServicesConfig struct {
	AvailabilityEndpoint string
	GeocodingEndpoint    string
	RoutingEndpoint      string
	UserAgent            string
	GeocoderRatePerSec   float64
}

// TimeoutConfig bounds outbound calls
type TimeoutConfig struct {
	HTTPClient   time.Duration // transport-level timeout on each http.Client
	ExternalCall time.Duration // deadline the controller puts on every external step
}

// CatalogConfig selects where the facility catalog is loaded from.
// DSN wins over Path when both are set.
type CatalogConfig struct {
	Path  string
	DSN   string
	Table string
}

// SessionConfig holds in-memory session registry settings
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Services: ServicesConfig{
			AvailabilityEndpoint: getEnv("AVAILABILITY_ENDPOINT", "https://api.data.gov.sg/v1/transport/carpark-availability"),
			GeocodingEndpoint:    getEnv("GEOCODING_ENDPOINT", "https://nominatim.openstreetmap.org/search"),
			RoutingEndpoint:      getEnv("ROUTING_ENDPOINT", "https://router.project-osrm.org/route/v1/driving"),
			UserAgent:            getEnv("HTTP_USER_AGENT", "parkfinder/1.0"),
			GeocoderRatePerSec:   getEnvAsFloat("GEOCODER_RATE_PER_SEC", 1),
		},
		Timeouts: TimeoutConfig{
			HTTPClient:   getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),
			ExternalCall: getEnvAsDuration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
		},
		Catalog: CatalogConfig{
			Path:  getEnv("CATALOG_PATH", "data/carparks.json"),
			DSN:   getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Table: getEnv("CATALOG_TABLE", "carparks"),
		},
		Sessions: SessionConfig{
			IdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("10s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
	return defaultValue
}
