package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Counter backs sequential numbers such as SKUs and order numbers.
type Counter struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&Category{}, &Product{},
		&Cart{}, &CartItem{},
		&Voucher{}, &VoucherUsage{},
		&Order{}, &OrderItem{},
		&Payment{},
		&Counter{},
	}
}
