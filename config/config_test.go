package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []byte("secret"), cfg.SecretKey)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 24*time.Hour, cfg.CartTTL)
	assert.Equal(t, "order-status", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.SecureCookies)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CART_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Contains(t, cfg.DB.DSN(), "port=6543")
	assert.False(t, cfg.SecureCookies)
}

func TestFromEnv_CollectsAllErrors(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("DB_PORT", "abc")
	t.Setenv("CART_TTL", "forever")
	t.Setenv("ADMIN_EMAIL", "admin@canteen.local")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := FromEnv()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET_KEY")
	assert.Contains(t, msg, "DB_PORT")
	assert.Contains(t, msg, "CART_TTL")
	assert.Contains(t, msg, "ADMIN_EMAIL")
}
