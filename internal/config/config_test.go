package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "sandbox", cfg.Payment.Provider)
	assert.Equal(t, "storefront_session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Payment.AllowUnpaidCheckout)
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_StripeRequiresSecretKey(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "stripe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "paypal")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UnpaidCheckoutIsSandboxOnly(t *testing.T) {
	t.Setenv("PAYMENT_ALLOW_UNPAID_CHECKOUT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Payment.AllowUnpaidCheckout)

	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_ALLOW_UNPAID_CHECKOUT")
}

func TestLoadClient_TrimsBaseURL(t *testing.T) {
	t.Setenv("API_URL", "http://shop.local:8080/")
	t.Setenv("CLIENT_FINALIZE_ATTEMPTS", "3")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://shop.local:8080", cfg.Client.APIBaseURL)
	assert.Equal(t, 3, cfg.Client.FinalizeAttempts)
}

func TestLoadClient_IgnoresServerSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_HOST", "")

	_, err := LoadClient()
	assert.NoError(t, err)
}

func TestLoadClient_StripeNeedsPublishableKey(t *testing.T) {
	t.Setenv("CLIENT_PAYMENT_PROVIDER", "stripe")

	_, err := LoadClient()
	require.Error(t, err)

	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	_, err = LoadClient()
	assert.NoError(t, err)
}

func TestLoadClient_Defaults(t *testing.T) {
	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Client.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.Client.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.FinalizeBackoff)
	assert.Equal(t, "pm_card_visa", cfg.Client.DefaultCard)
}

func TestLoadClient_BadDuration(t *testing.T) {
	t.Setenv("CLIENT_FINALIZE_BACKOFF", "soon")

	_, err := LoadClient()
	assert.Error(t, err)
}

func TestGetEnvAsSlice_TrimsEntries(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, getEnvAsSlice("KAFKA_BROKERS", nil))
}
