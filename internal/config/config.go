package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Queue behavior configuration
	Queue QueueConfig

	// Gizmo center-management API configuration
	Gizmo GizmoConfig

	// Web-push delivery configuration
	Push PushConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// QueueConfig holds queue behavior tuning
type QueueConfig struct {
	MinutesPerPosition int           // rough per-person wait heuristic
	SweepInterval      time.Duration // auto-removal reconciliation interval
	PositionRetries    int           // join position-collision retry bound
	RetryBackoff       time.Duration
}

// GizmoConfig holds the center-management API client configuration
type GizmoConfig struct {
	BaseURL      string
	Username     string
	Password     string
	Timeout      time.Duration
	WebhookToken string // shared secret for inbound session event posts
}

// PushConfig holds web-push delivery configuration
type PushConfig struct {
	Enabled         bool
	GatewayURL      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string // mailto: contact for the push service
	Timeout         time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Queue: QueueConfig{
			MinutesPerPosition: getEnvAsInt("QUEUE_MINUTES_PER_POSITION", 15),
			SweepInterval:      time.Duration(getEnvAsInt("QUEUE_SWEEP_INTERVAL_SECONDS", 45)) * time.Second,
			PositionRetries:    getEnvAsInt("QUEUE_POSITION_RETRIES", 3),
			RetryBackoff:       time.Duration(getEnvAsInt("QUEUE_RETRY_BACKOFF_MS", 150)) * time.Millisecond,
		},
		Gizmo: GizmoConfig{
			BaseURL:      getEnv("GIZMO_API_URL", ""),
			Username:     getEnv("GIZMO_API_USERNAME", ""),
			Password:     getEnv("GIZMO_API_PASSWORD", ""),
			Timeout:      time.Duration(getEnvAsInt("GIZMO_API_TIMEOUT_SECONDS", 10)) * time.Second,
			WebhookToken: getEnv("GIZMO_WEBHOOK_TOKEN", ""),
		},
		Push: PushConfig{
			Enabled:         getEnvAsBool("PUSH_ENABLED", true),
			GatewayURL:      getEnv("PUSH_GATEWAY_URL", ""),
			VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subject:         getEnv("PUSH_SUBJECT", "mailto:info@pixelarena.gg"),
			Timeout:         time.Duration(getEnvAsInt("PUSH_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Queue.MinutesPerPosition <= 0 {
		return fmt.Errorf("QUEUE_MINUTES_PER_POSITION must be positive")
	}

	if c.Queue.SweepInterval < 10*time.Second {
		return fmt.Errorf("QUEUE_SWEEP_INTERVAL_SECONDS must be at least 10")
	}

	// Push delivery is best-effort, but an enabled gateway needs keys
	if c.Push.Enabled && c.Push.GatewayURL != "" {
		if c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "" {
			return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required when the push gateway is configured")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
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
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
