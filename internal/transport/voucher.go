package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/pricing"
)

type VoucherRequest struct {
	Code              string               `json:"code"`
	Description       string               `json:"description"`
	DiscountType      pricing.DiscountKind `json:"discount_type"`
	Value             decimal.Decimal      `json:"value"`
	MaxDiscountAmount *decimal.Decimal     `json:"max_discount_amount"`
	MinOrderAmount    decimal.Decimal      `json:"min_order_amount"`
	StartsAt          *time.Time           `json:"starts_at"`
	ExpiresAt         *time.Time           `json:"expires_at"`
	UsageLimit        int                  `json:"usage_limit"`
	UsageLimitPerUser int                  `json:"usage_limit_per_user"`
	IsActive          *bool                `json:"is_active"`
}

type PatchVoucherRequest struct {
	Description       *string          `json:"description"`
	Value             *decimal.Decimal `json:"value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	ClearMaxDiscount  bool             `json:"clear_max_discount"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	StartsAt          *time.Time       `json:"starts_at"`
	ExpiresAt         *time.Time       `json:"expires_at"`
	UsageLimit        *int             `json:"usage_limit"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user"`
	IsActive          *bool            `json:"is_active"`
}

type ValidateVoucherRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type VoucherPreview struct {
	Code         string               `json:"code"`
	DiscountType pricing.DiscountKind `json:"discount_type"`
	Value        decimal.Decimal      `json:"value"`
	Discount     decimal.Decimal      `json:"discount_amount"`
}
