package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderPacking   = "packing"
	OrderPacked    = "packed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

var fulfilment = []string{OrderPending, OrderPaid, OrderPacking, OrderPacked, OrderShipped, OrderDelivered}

func ValidOrderStatus(s string) bool {
	return s == OrderCancelled || stepIndex(s) >= 0
}

// NextStatus is the single forward step from s, or "" at the end of the chain.
func NextStatus(s string) string {
	i := stepIndex(s)
	if i < 0 || i == len(fulfilment)-1 {
		return ""
	}
	return fulfilment[i+1]
}

func CanTransition(from, to string) bool {
	if to == OrderCancelled {
		return CanCancel(from)
	}
	return to != "" && NextStatus(from) == to
}

func CanCancel(from string) bool {
	switch from {
	case OrderPending, OrderPaid, OrderPacking, OrderPacked:
		return true
	}
	return false
}

func stepIndex(s string) int {
	for i, st := range fulfilment {
		if st == s {
			return i
		}
	}
	return -1
}

type Address struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type Order struct {
	Base
	OrderNumber     string                      `gorm:"uniqueIndex;not null;size:32" json:"order_number"`
	UserID          *uuid.UUID                  `gorm:"type:uuid;index"              json:"user_id,omitempty"`
	SessionID       *string                     `gorm:"size:128;index"               json:"-"`
	GuestName       string                      `gorm:"size:255"                     json:"guest_name,omitempty"`
	GuestEmail      string                      `gorm:"size:255;index"               json:"guest_email,omitempty"`
	GuestPhone      string                      `gorm:"size:32"                      json:"guest_phone,omitempty"`
	Status          string                      `gorm:"not null;size:16;index"       json:"status"`
	PaymentStatus   string                      `gorm:"not null;size:16;index"       json:"payment_status"`
	ShippingAddress datatypes.JSONType[Address] `gorm:"not null"                     json:"shipping_address"`
	Subtotal        decimal.Decimal             `gorm:"type:decimal(12,2);not null"  json:"subtotal_excluding_vat"`
	VATAmount       decimal.Decimal             `gorm:"type:decimal(12,2);not null"  json:"total_vat_amount"`
	DiscountAmount  decimal.Decimal             `gorm:"type:decimal(12,2);not null"  json:"discount_amount"`
	ShippingCost    decimal.Decimal             `gorm:"type:decimal(12,2);not null"  json:"shipping_cost"`
	Total           decimal.Decimal             `gorm:"type:decimal(12,2);not null"  json:"total_amount"`
	VoucherID       *uuid.UUID                  `gorm:"type:uuid"                    json:"voucher_id,omitempty"`
	VoucherCode     string                      `gorm:"size:64"                      json:"voucher_code,omitempty"`
	Note            string                      `json:"note,omitempty"`
	TrackingNumber  string                      `gorm:"size:64"                      json:"tracking_number,omitempty"`
	PaidAt          *time.Time                  `gorm:"index"                        json:"paid_at,omitempty"`
	ShippedAt       *time.Time                  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time                  `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time                  `json:"cancelled_at,omitempty"`
	Items           []OrderItem                 `gorm:"constraint:OnDelete:CASCADE"  json:"items,omitempty"`
}

// OrderItem freezes the product as it was sold.
type OrderItem struct {
	Base
	OrderID        uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;index;not null"    json:"product_id"`
	SKU            string          `gorm:"not null;size:32"            json:"sku"`
	ProductName    string          `gorm:"not null;size:255"           json:"product_name"`
	UnitPriceExVAT decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price_excluding_vat"`
	VATRate        decimal.Decimal `gorm:"type:decimal(5,4);not null"  json:"vat_rate"`
	UnitVAT        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_vat"`
	Quantity       int             `gorm:"not null"                    json:"quantity"`
	LineSubtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_subtotal"`
	LineVAT        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_vat"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
}
