package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("SHIPPING_FLAT_FEE", "50")
	t.Setenv("DEFAULT_VAT_RATE", "not-a-number")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.True(t, cfg.Development())
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.True(t, cfg.ShippingFlatFee.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.DefaultVATRate.Equal(decimal.RequireFromString("0.07")))
	assert.True(t, cfg.TracingEnabled)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		DatabaseURL:           "postgres://localhost/shop",
		JWTAccessSecret:       []byte("a"),
		JWTRefreshSecret:      []byte("r"),
		UploadDir:             "uploads",
		RateLimitRequests:     10,
		AuthRateLimitRequests: 5,
		RateLimitWindow:       time.Minute,
		DefaultVATRate:        decimal.RequireFromString("0.07"),
	}
	require.NoError(t, cfg.Validate())

	cfg.DatabaseURL = ""
	cfg.JWTRefreshSecret = nil
	cfg.DefaultVATRate = decimal.NewFromInt(2)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET")
	assert.Contains(t, err.Error(), "DEFAULT_VAT_RATE")
	assert.NotContains(t, err.Error(), "JWT_SECRET ")
}
