package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := newViper()
	v.Set("APP_ENV", "development")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, time.Minute, cfg.RateLimitPeriod)
	assert.Equal(t, 15*time.Second, cfg.GatewayTimeout)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Len(t, cfg.AllowedOrigins, 2)
	assert.False(t, cfg.GatewayConfigured())
}

func TestFromViper_ProductionRequiresSecret(t *testing.T) {
	v := newViper()
	v.Set("APP_ENV", "production")
	v.Set("JWT_SECRET", "short")
	v.Set("CORS_ALLOWED_ORIGINS", "https://example.com")

	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_ProductionRequiresOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	v := newViper()
	v.Set("APP_ENV", "production")
	v.Set("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_DatabaseFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	v := newViper()
	v.Set("POSTGRESQL_HOST", "db")
	v.Set("POSTGRESQL_USER", "app")
	v.Set("POSTGRESQL_PASSWORD", "p@ss")
	v.Set("POSTGRESQL_DBNAME", "escrow")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:p%40ss@db:5432/escrow?sslmode=disable", cfg.DatabaseURL)
}

func TestFromViper_GatewayAndOrigins(t *testing.T) {
	v := newViper()
	v.Set("STRIPE_SECRET_KEY", " sk_test_123 ")
	v.Set("PAYMENT_CURRENCY", "EUR")
	v.Set("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.GatewayConfigured())
	assert.Equal(t, "sk_test_123", cfg.StripeSecretKey)
	assert.Equal(t, "eur", cfg.PaymentCurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromViper_BadDuration(t *testing.T) {
	v := newViper()
	v.Set("GATEWAY_TIMEOUT", "soon")

	_, err := FromViper(v)
	assert.Error(t, err)
}
