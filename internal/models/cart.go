package models

import "github.com/google/uuid"

// Cart belongs to exactly one of UserID or SessionID.
type Cart struct {
	Base
	UserID    *uuid.UUID `gorm:"type:uuid;uniqueIndex"  json:"user_id,omitempty"`
	SessionID *string    `gorm:"size:128;uniqueIndex"   json:"session_id,omitempty"`
	VoucherID *uuid.UUID `gorm:"type:uuid"              json:"voucher_id,omitempty"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	Base
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  int       `gorm:"not null"                                        json:"quantity"`
	Product   Product   `gorm:"foreignKey:ProductID"                            json:"-"`
}
