package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env         string
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr     string
	RedisPassword string

	RateLimitRequests     int
	AuthRateLimitRequests int
	RateLimitWindow       time.Duration

	UploadDir      string
	UploadMaxBytes int64

	ShippingFlatFee decimal.Decimal
	FreeShippingMin decimal.Decimal
	DefaultVATRate  decimal.Decimal

	TracingEnabled bool
}

func (c Config) Development() bool {
	return c.Env == "development"
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env not loaded (%v), using process environment", err)
	}

	return Config{
		Env:         EnvDefault("APP_ENV", "production"),
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RateLimitRequests:     EnvIntDefault("RATE_LIMIT_REQUESTS", 120),
		AuthRateLimitRequests: EnvIntDefault("AUTH_RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:       time.Duration(EnvIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		UploadDir:      EnvDefault("UPLOAD_DIR", "uploads"),
		UploadMaxBytes: int64(EnvIntDefault("UPLOAD_MAX_BYTES", 5<<20)),

		ShippingFlatFee: EnvDecimalDefault("SHIPPING_FLAT_FEE", decimal.Zero),
		FreeShippingMin: EnvDecimalDefault("FREE_SHIPPING_MIN", decimal.Zero),
		DefaultVATRate:  EnvDecimalDefault("DEFAULT_VAT_RATE", decimal.RequireFromString("0.07")),

		TracingEnabled: EnvBoolDefault("TRACING_ENABLED", false),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDecimalDefault(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
