package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_DRIVER", "DEFAULT_CURRENCY", "CART_TTL_DAYS", "SESSION_COOKIE_NAME", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "JPY", cfg.DefaultCurrency)
	assert.Equal(t, 14*24*time.Hour, cfg.CartTTL)
	assert.Equal(t, "sid", cfg.SessionCookieName)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("CART_TTL_DAYS", "3")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := FromEnv()
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestFromEnvIgnoresBadDuration(t *testing.T) {
	t.Setenv("CART_TTL_DAYS", "soon")
	assert.Equal(t, 14*24*time.Hour, FromEnv().CartTTL)
}
