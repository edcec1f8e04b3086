package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/report"
)

type FinancialSummary struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	OrderCount int               `json:"order_count"`
	GrossTotal decimal.Decimal   `json:"gross_total"`
	NetSales   decimal.Decimal   `json:"net_sales"`
	VAT        decimal.Decimal   `json:"vat"`
	Discounts  decimal.Decimal   `json:"discounts"`
	Shipping   decimal.Decimal   `json:"shipping"`
	Daily      []report.DailyRow `json:"daily"`
}

type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
}

type Dashboard struct {
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
	PendingPayments int64            `json:"pending_payments"`
	LowStock        []models.Product `json:"low_stock"`
	TopProducts     []TopProduct     `json:"top_products"`
	Revenue30Days   decimal.Decimal  `json:"revenue_last_30_days"`
	Orders30Days    int              `json:"orders_last_30_days"`
}

type VATMonth struct {
	Month    string          `json:"month"`
	Orders   int             `json:"orders"`
	NetSales decimal.Decimal `json:"net_sales"`
	VAT      decimal.Decimal `json:"vat"`
	Gross    decimal.Decimal `json:"gross"`
}

type VATReport struct {
	Year     int             `json:"year"`
	Months   []VATMonth      `json:"months"`
	NetSales decimal.Decimal `json:"net_sales"`
	VAT      decimal.Decimal `json:"vat"`
	Gross    decimal.Decimal `json:"gross"`
}
