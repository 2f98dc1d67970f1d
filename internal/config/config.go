package config

import (
	"os"
	"strconv"
)

// CallServiceConfig holds configuration for the call service
type CallServiceConfig struct {
	Port string

	// Public base URL this service is reachable at, used to reconstruct the
	// webhook URL during signature validation.
	PublicBaseURL string

	// Telephony provider configuration
	TwilioAccountSID string
	TwilioAuthToken  string

	// AI conversation service configuration
	AIServiceBaseURL string
	AIServiceSecret  string

	// Internal API authentication
	InternalAPISecret string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Rate limiting for the public webhook endpoints
	RateLimitPerSecond float64
	RateLimitBurst     int

	EnableCORS bool
}

// LoadConfigFromEnv loads the call service configuration from environment
// variables. The .env file is loaded in main.go for local development.
func LoadConfigFromEnv() *CallServiceConfig {
	return &CallServiceConfig{
		Port:          getEnvOrDefault("CALL_SERVICE_PORT", "8080"),
		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),

		TwilioAccountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),

		AIServiceBaseURL: getEnvOrDefault("AI_SERVICE_BASE_URL", "http://localhost:8090"),
		AIServiceSecret:  getEnvOrDefault("AI_SERVICE_SECRET", ""),

		InternalAPISecret: getEnvOrDefault("INTERNAL_API_SECRET", ""),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsIntOrDefault("REDIS_DB", 0),

		RateLimitPerSecond: getEnvAsFloatOrDefault("WEBHOOK_RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsIntOrDefault("WEBHOOK_RATE_LIMIT_BURST", 20),

		EnableCORS: getEnvAsBoolOrDefault("ENABLE_CORS", true),
	}
}

// RedisAddr returns the host:port address for the Redis connection.
func (c *CallServiceConfig) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloatOrDefault gets environment variable as float or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
