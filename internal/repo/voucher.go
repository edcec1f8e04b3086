package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateVoucher(ctx context.Context, v *models.Voucher) error {
	return r.DB.WithContext(ctx).Create(v).Error
}

func (r *GormRepo) GetVoucher(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var v models.Voucher
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *GormRepo) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var v models.Voucher
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *GormRepo) ListVouchers(ctx context.Context, offset, limit int) (int64, []models.Voucher, error) {
	return paginate[models.Voucher](r.DB.WithContext(ctx).Model(&models.Voucher{}), "created_at DESC", offset, limit)
}

func (r *GormRepo) UpdateVoucher(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Voucher, error) {
	if len(updates) > 0 {
		if err := r.DB.WithContext(ctx).Model(&models.Voucher{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.GetVoucher(ctx, id)
}

func (r *GormRepo) DeleteVoucher(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Voucher{})
	return res.RowsAffected > 0, res.Error
}

// IncrementVoucherUsage consumes one use unless the global limit is reached.
func (r *GormRepo) IncrementVoucherUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) CreateVoucherUsage(ctx context.Context, u *models.VoucherUsage) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *GormRepo) CountVoucherUsageByUser(ctx context.Context, voucherID, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		Count(&n).Error
	return n, err
}

func (r *GormRepo) CountVoucherUsageByEmail(ctx context.Context, voucherID uuid.UUID, email string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND email = ?", voucherID, email).
		Count(&n).Error
	return n, err
}
