package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/pricing"
)

type Category struct {
	Base
	Code        string `gorm:"uniqueIndex;not null;size:5" json:"code"`
	Name        string `gorm:"not null;size:255"           json:"name"`
	Description string `json:"description"`
}

type Product struct {
	Base
	SKU               string          `gorm:"uniqueIndex;not null;size:32"      json:"sku"`
	Name              string          `gorm:"not null;size:255"                 json:"name"`
	Description       string          `json:"description"`
	CategoryID        uuid.UUID       `gorm:"type:uuid;index;not null"          json:"category_id"`
	PriceExcludingVAT decimal.Decimal `gorm:"type:decimal(12,2);not null"       json:"price_excluding_vat"`
	VATRate           decimal.Decimal `gorm:"type:decimal(5,4);not null"        json:"vat_rate"`
	StockQuantity     int             `gorm:"not null"                          json:"stock_quantity"`
	LowStockThreshold int             `gorm:"not null"                          json:"low_stock_threshold"`
	ImageURL          string          `json:"image_url"`
	IsActive          bool            `gorm:"not null;index"                    json:"is_active"`

	PriceIncludingVAT decimal.Decimal `gorm:"-" json:"price_including_vat"`
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.fillGross()
	return nil
}

func (p *Product) AfterSave(tx *gorm.DB) error {
	p.fillGross()
	return nil
}

func (p *Product) fillGross() {
	p.PriceIncludingVAT = pricing.GrossPrice(p.PriceExcludingVAT, p.VATRate)
}

func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}
