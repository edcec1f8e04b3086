package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/pricing"
)

type Voucher struct {
	Base
	Code              string               `gorm:"uniqueIndex;not null;size:64" json:"code"`
	Description       string               `json:"description"`
	DiscountType      pricing.DiscountKind `gorm:"not null;size:16"             json:"discount_type"`
	Value             decimal.Decimal      `gorm:"type:decimal(12,2);not null"  json:"value"`
	MaxDiscountAmount *decimal.Decimal     `gorm:"type:decimal(12,2)"           json:"max_discount_amount,omitempty"`
	MinOrderAmount    decimal.Decimal      `gorm:"type:decimal(12,2);not null"  json:"min_order_amount"`
	StartsAt          *time.Time           `json:"starts_at,omitempty"`
	ExpiresAt         *time.Time           `json:"expires_at,omitempty"`
	UsageLimit        int                  `gorm:"not null"                     json:"usage_limit"`
	UsageLimitPerUser int                  `gorm:"not null"                     json:"usage_limit_per_user"`
	UsedCount         int                  `gorm:"not null"                     json:"used_count"`
	IsActive          bool                 `gorm:"not null"                     json:"is_active"`
}

func (v *Voucher) Discount() pricing.Discount {
	return pricing.Discount{Kind: v.DiscountType, Value: v.Value, MaxAmount: v.MaxDiscountAmount}
}

type VoucherUsage struct {
	Base
	VoucherID uuid.UUID  `gorm:"type:uuid;index;not null" json:"voucher_id"`
	OrderID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"order_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"          json:"user_id,omitempty"`
	Email     string     `gorm:"index;size:255"           json:"email"`
}
