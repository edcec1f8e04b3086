package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestPayment returns nil, nil when the order has no payments yet.
func (r *GormRepo) LatestPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("attempt DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var ps []models.Payment
	err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("attempt ASC").Find(&ps).Error
	return ps, err
}

func (r *GormRepo) ListPaymentsByStatus(ctx context.Context, status string, offset, limit int) (int64, []models.Payment, error) {
	q := r.DB.WithContext(ctx).Model(&models.Payment{}).Where("status = ?", status)
	return paginate[models.Payment](q, "created_at ASC", offset, limit)
}

// TransitionPayment moves a pending payment to a terminal status.
func (r *GormRepo) TransitionPayment(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}
