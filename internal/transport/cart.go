package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyVoucherRequest struct {
	Code string `json:"code"`
}

type CartItemView struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	ImageURL         string          `json:"image_url,omitempty"`
	UnitPriceExVAT   decimal.Decimal `json:"unit_price_excluding_vat"`
	UnitPriceInclVAT decimal.Decimal `json:"unit_price_including_vat"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	Quantity         int             `json:"quantity"`
	LineSubtotal     decimal.Decimal `json:"line_subtotal"`
	LineVAT          decimal.Decimal `json:"line_vat"`
	StockQuantity    int             `json:"stock_quantity"`
	Available        bool            `json:"available"`
}

// CartView is always recomputed from current product prices.
type CartView struct {
	ID           *uuid.UUID      `json:"id,omitempty"`
	Items        []CartItemView  `json:"items"`
	ItemCount    int             `json:"item_count"`
	VoucherCode  string          `json:"voucher_code,omitempty"`
	VoucherError string          `json:"voucher_error,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal_excluding_vat"`
	VAT          decimal.Decimal `json:"total_vat_amount"`
	Discount     decimal.Decimal `json:"discount_amount"`
	Shipping     decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total_amount"`
}
