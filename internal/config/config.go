// Package config provides environment configuration for the bot server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// PlaceholderAccountID and PlaceholderAccessToken are the shipped
	// defaults; Validate reports them so operators notice.
	PlaceholderAccountID   = "YOUR_ACCOUNT_ID"
	PlaceholderAccessToken = "YOUR_API_ACCESS_TOKEN"

	defaultJWTSecret = "development-secret-change-in-production"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment name; "development" switches to the console logger.
	Env string

	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSAllowedOrigins []string

	// Chatwoot settings
	ChatwootBaseURL     string
	ChatwootAccountID   string
	ChatwootAccessToken string
	ChatwootTimeout     time.Duration
	ChatwootRateLimit   float64
	MenuEncoding        string
	AgentNotes          bool
	WebhookToken        string

	// State store settings; an empty RedisAddr selects the in-memory store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StateTTL      time.Duration

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "production"),

		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		// Chatwoot
		ChatwootBaseURL:     getEnv("CHATWOOT_BASE_URL", "https://app.chatwoot.com"),
		ChatwootAccountID:   getEnv("CHATWOOT_ACCOUNT_ID", PlaceholderAccountID),
		ChatwootAccessToken: getEnv("CHATWOOT_API_ACCESS_TOKEN", PlaceholderAccessToken),
		ChatwootTimeout:     getDurationEnv("CHATWOOT_TIMEOUT", 10*time.Second),
		ChatwootRateLimit:   getFloatEnv("CHATWOOT_RATE_LIMIT", 5),
		MenuEncoding:        getEnv("MENU_ENCODING", "input_select"),
		AgentNotes:          getBoolEnv("AGENT_NOTES", false),
		WebhookToken:        getEnv("WEBHOOK_TOKEN", ""),

		// State
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		StateTTL:      getDurationEnv("STATE_TTL", 7*24*time.Hour),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate returns human-readable warnings for settings that still hold
// placeholder or insecure values. Loading never fails on them.
func (c *Config) Validate() []string {
	var warnings []string
	if c.ChatwootAccountID == PlaceholderAccountID {
		warnings = append(warnings, "CHATWOOT_ACCOUNT_ID is not set; outbound messages will be rejected")
	}
	if c.ChatwootAccessToken == PlaceholderAccessToken {
		warnings = append(warnings, "CHATWOOT_API_ACCESS_TOKEN is not set; outbound messages will be rejected")
	}
	if c.JWTSecret == defaultJWTSecret {
		warnings = append(warnings, "JWT_SECRET uses the development default")
	}
	if c.WebhookToken == "" {
		warnings = append(warnings, "WEBHOOK_TOKEN is empty; webhook calls are not authenticated")
	}
	switch c.MenuEncoding {
	case "input_select", "cards":
	default:
		warnings = append(warnings, "MENU_ENCODING "+strconv.Quote(c.MenuEncoding)+" is unknown; using input_select")
	}
	return warnings
}

// IsDevelopment reports whether the development logger should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
