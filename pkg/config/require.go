package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// Validate reports every missing or unusable setting at once.
func (c Config) Validate() error {
	var errs []error

	required := []struct {
		env string
		ok  bool
	}{
		{"DATABASE_URL", c.DatabaseURL != ""},
		{"JWT_SECRET", len(c.JWTAccessSecret) > 0},
		{"JWT_REFRESH_SECRET", len(c.JWTRefreshSecret) > 0},
		{"UPLOAD_DIR", c.UploadDir != ""},
	}
	for _, r := range required {
		if !r.ok {
			errs = append(errs, fmt.Errorf("missing required env %s", r.env))
		}
	}

	if c.RateLimitRequests <= 0 || c.AuthRateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}
	if c.DefaultVATRate.IsNegative() || c.DefaultVATRate.GreaterThan(decimalOne) {
		errs = append(errs, fmt.Errorf("DEFAULT_VAT_RATE %s is outside [0, 1]", c.DefaultVATRate))
	}
	return errors.Join(errs...)
}
