package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Create(o).Error
}

func (r *GormRepo) withItems(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.withItems(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var o models.Order
	if err := r.withItems(ctx).Where("order_number = ?", number).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return paginate[models.Order](q, "created_at DESC", offset, limit)
}

type OrderFilter struct {
	Status        string
	PaymentStatus string
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	return paginate[models.Order](q, "created_at DESC", offset, limit)
}

// UpdateOrderFields applies updates only while the order still has status
// expected, so concurrent transitions cannot both succeed.
func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uuid.UUID, expected string, updates map[string]any) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if expected != "" {
		q = q.Where("status = ?", expected)
	}
	res := q.Updates(updates)
	return res.RowsAffected > 0, res.Error
}
