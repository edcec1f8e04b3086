package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentRejected = "rejected"
)

type Payment struct {
	Base
	OrderID         uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_order_attempt;not null" json:"order_id"`
	Attempt         int             `gorm:"uniqueIndex:idx_order_attempt;not null"           json:"attempt"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"                      json:"amount"`
	TransferredAt   *time.Time      `json:"transferred_at,omitempty"`
	SlipPath        string          `gorm:"not null"                                         json:"-"`
	SlipContentType string          `gorm:"not null;size:32"                                 json:"slip_content_type"`
	Status          string          `gorm:"not null;size:16;index"                           json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	VerifiedBy      *uuid.UUID      `gorm:"type:uuid"                                        json:"verified_by,omitempty"`
	VerifiedAt      *time.Time      `json:"verified_at,omitempty"`
	UploadedBy      *uuid.UUID      `gorm:"type:uuid"                                        json:"uploaded_by,omitempty"`
}
