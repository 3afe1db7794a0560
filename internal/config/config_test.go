package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "https://app.chatwoot.com", cfg.ChatwootBaseURL)
	assert.Equal(t, PlaceholderAccountID, cfg.ChatwootAccountID)
	assert.Equal(t, PlaceholderAccessToken, cfg.ChatwootAccessToken)
	assert.Equal(t, "input_select", cfg.MenuEncoding)
	assert.False(t, cfg.AgentNotes)
	assert.False(t, cfg.NATSEnabled)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.StateTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHATWOOT_BASE_URL", "https://chat.example.com")
	t.Setenv("CHATWOOT_ACCOUNT_ID", "3")
	t.Setenv("CHATWOOT_API_ACCESS_TOKEN", "secret")
	t.Setenv("CHATWOOT_TIMEOUT", "2s")
	t.Setenv("CHATWOOT_RATE_LIMIT", "2.5")
	t.Setenv("MENU_ENCODING", "cards")
	t.Setenv("AGENT_NOTES", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("STATE_TTL", "1h")
	t.Setenv("NATS_ENABLED", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "https://chat.example.com", cfg.ChatwootBaseURL)
	assert.Equal(t, "3", cfg.ChatwootAccountID)
	assert.Equal(t, "secret", cfg.ChatwootAccessToken)
	assert.Equal(t, 2*time.Second, cfg.ChatwootTimeout)
	assert.InDelta(t, 2.5, cfg.ChatwootRateLimit, 0.0001)
	assert.Equal(t, "cards", cfg.MenuEncoding)
	assert.True(t, cfg.AgentNotes)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.Equal(t, time.Hour, cfg.StateTTL)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	t.Setenv("STATE_TTL", "forever")
	t.Setenv("AGENT_NOTES", "maybe")

	cfg := Load()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 7*24*time.Hour, cfg.StateTTL)
	assert.False(t, cfg.AgentNotes)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	warnings := cfg.Validate()
	assert.Len(t, warnings, 4)

	t.Setenv("CHATWOOT_ACCOUNT_ID", "1")
	t.Setenv("CHATWOOT_API_ACCESS_TOKEN", "token")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WEBHOOK_TOKEN", "hook")
	t.Setenv("MENU_ENCODING", "carousel")

	warnings = Load().Validate()
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "MENU_ENCODING")
}
