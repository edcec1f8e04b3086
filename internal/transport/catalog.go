package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CategoryRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PatchCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateProductRequest struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	CategoryID        uuid.UUID        `json:"category_id"`
	PriceExcludingVAT decimal.Decimal  `json:"price_excluding_vat"`
	VATRate           *decimal.Decimal `json:"vat_rate"`
	StockQuantity     int              `json:"stock_quantity"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	IsActive          *bool            `json:"is_active"`
}

type PatchProductRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	PriceExcludingVAT *decimal.Decimal `json:"price_excluding_vat"`
	VATRate           *decimal.Decimal `json:"vat_rate"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	IsActive          *bool            `json:"is_active"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta"`
}
