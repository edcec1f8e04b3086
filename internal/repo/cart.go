package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) cartQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Preload("Items.Product")
}

func (r *GormRepo) GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	if err := r.cartQuery(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	if err := r.cartQuery(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) GetCartBySession(ctx context.Context, sessionID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.cartQuery(ctx).Where("session_id = ?", sessionID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CreateCart(ctx context.Context, c *models.Cart) error {
	return r.DB.WithContext(ctx).Omit("Items").Create(c).Error
}

func (r *GormRepo) FindCartItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	if err := r.DB.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *GormRepo) GetCartItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var it models.CartItem
	if err := r.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, it *models.CartItem) error {
	return r.DB.WithContext(ctx).Omit("Product").Create(it).Error
}

func (r *GormRepo) SetCartItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", itemID).Update("quantity", qty).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) SetCartVoucher(ctx context.Context, cartID uuid.UUID, voucherID *uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).Update("voucher_id", voucherID).Error
}

// ClearCart empties the cart and drops its voucher but keeps the cart row.
func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.DB.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.DB.Model(&models.Cart{}).Where("id = ?", cartID).Update("voucher_id", nil).Error
	})
}

func (r *GormRepo) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	db := r.DB.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", cartID).Delete(&models.Cart{}).Error
}
