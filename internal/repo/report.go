package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

// PaidOrdersBetween returns settled, non-cancelled orders paid in [from, to).
func (r *GormRepo) PaidOrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Where("payment_status = ? AND status <> ?", models.PaymentStatusPaid, models.OrderCancelled).
		Where("paid_at >= ? AND paid_at < ?", from.UTC(), to.UTC()).
		Order("paid_at ASC").
		Find(&orders).Error
	return orders, err
}

type StatusCount struct {
	Status string
	Count  int64
}

func (r *GormRepo) CountOrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

func (r *GormRepo) CountPaymentsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Payment{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

type ProductSales struct {
	ProductID   uuid.UUID
	SKU         string
	ProductName string
	Quantity    int64
}

// TopProducts ranks products by units sold on paid, non-cancelled orders.
func (r *GormRepo) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.DB.WithContext(ctx).Table("order_items").
		Select("order_items.product_id, MAX(order_items.sku) AS sku, MAX(order_items.product_name) AS product_name, SUM(order_items.quantity) AS quantity").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.payment_status = ? AND orders.status <> ?", models.PaymentStatusPaid, models.OrderCancelled).
		Group("order_items.product_id").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
