package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
)

var voucherCode = regexp.MustCompile(`^[A-Z0-9_-]{3,64}$`)

type VoucherService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Now    Clock
}

func normalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// redeemer identifies who would consume a voucher use, for per-user limits.
type redeemer struct {
	UserID *uuid.UUID
	Email  string
}

// checkVoucher applies every redemption rule to v for the given subtotal and
// returns the first failing one as a coded error.
func checkVoucher(ctx context.Context, r *repo.GormRepo, v *models.Voucher, subtotal decimal.Decimal, now time.Time, who redeemer) error {
	if !v.IsActive {
		return invalid(CodeVoucherInactive, "voucher is not active")
	}
	if v.StartsAt != nil && now.Before(*v.StartsAt) {
		return invalid(CodeVoucherNotStarted, "voucher is not valid yet")
	}
	if v.ExpiresAt != nil && !now.Before(*v.ExpiresAt) {
		return invalid(CodeVoucherExpired, "voucher has expired")
	}
	if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
		return invalid(CodeVoucherUsageLimit, "voucher usage limit reached")
	}

	if v.UsageLimitPerUser > 0 {
		var used int64
		var err error
		switch {
		case who.UserID != nil:
			used, err = r.CountVoucherUsageByUser(ctx, v.ID, *who.UserID)
		case who.Email != "":
			used, err = r.CountVoucherUsageByEmail(ctx, v.ID, who.Email)
		}
		if err != nil {
			return err
		}
		if used >= int64(v.UsageLimitPerUser) {
			return invalid(CodeVoucherUserLimit, "voucher already used the maximum number of times")
		}
	}

	if v.MinOrderAmount.IsPositive() && subtotal.LessThan(v.MinOrderAmount) {
		return invalid(CodeVoucherMinOrder, fmt.Sprintf("order subtotal must be at least %s", v.MinOrderAmount.StringFixed(2)))
	}
	return nil
}

func lookupVoucher(ctx context.Context, r *repo.GormRepo, code string) (*models.Voucher, error) {
	v, err := r.GetVoucherByCode(ctx, normalizeVoucherCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid(CodeVoucherNotFound, "voucher does not exist")
		}
		return nil, err
	}
	return v, nil
}

func validateVoucherTerms(kind pricing.DiscountKind, value decimal.Decimal, maxAmount *decimal.Decimal, minOrder decimal.Decimal, limit, perUser int, starts, expires *time.Time) error {
	if !kind.Valid() {
		return invalidf("discount_type must be percentage or fixed_amount")
	}
	if !value.IsPositive() {
		return invalidf("value must be > 0")
	}
	if kind == pricing.Percentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return invalidf("percentage value must be <= 100")
	}
	if maxAmount != nil && maxAmount.IsNegative() {
		return invalidf("max_discount_amount must be >= 0")
	}
	if minOrder.IsNegative() {
		return invalidf("min_order_amount must be >= 0")
	}
	if limit < 0 || perUser < 0 {
		return invalidf("usage limits must be >= 0")
	}
	if starts != nil && expires != nil && !expires.After(*starts) {
		return invalidf("expires_at must be after starts_at")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *VoucherService) Create(ctx context.Context, req transport.VoucherRequest) (*models.Voucher, error) {
	code := normalizeVoucherCode(req.Code)
	if !voucherCode.MatchString(code) {
		return nil, invalidf("code must be 3-64 letters, digits, '-' or '_'")
	}
	if err := validateVoucherTerms(req.DiscountType, req.Value, req.MaxDiscountAmount, req.MinOrderAmount,
		req.UsageLimit, req.UsageLimitPerUser, req.StartsAt, req.ExpiresAt); err != nil {
		return nil, err
	}

	_, err := s.Repo.GetVoucherByCode(ctx, code)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: voucher %s already exists", ErrConflict, code)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	v := &models.Voucher{
		Code:              code,
		Description:       strings.TrimSpace(req.Description),
		DiscountType:      req.DiscountType,
		Value:             req.Value,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderAmount:    req.MinOrderAmount,
		StartsAt:          utcPtr(req.StartsAt),
		ExpiresAt:         utcPtr(req.ExpiresAt),
		UsageLimit:        req.UsageLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
		IsActive:          req.IsActive == nil || *req.IsActive,
	}
	if err := s.Repo.CreateVoucher(ctx, v); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: voucher %s already exists", ErrConflict, code)
		}
		return nil, err
	}

	emit(ctx, s.Events, events.TopicCatalog, v.ID.String(), "voucher_created", map[string]any{"code": code})
	return v, nil
}

func (s *VoucherService) Get(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	v, err := s.Repo.GetVoucher(ctx, id)
	if err != nil {
		return nil, notFound(err, "voucher")
	}
	return v, nil
}

func (s *VoucherService) List(ctx context.Context, offset, limit int) (int64, []models.Voucher, error) {
	return s.Repo.ListVouchers(ctx, offset, limit)
}

func (s *VoucherService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchVoucherRequest) (*models.Voucher, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Value != nil {
		v.Value = *req.Value
		updates["value"] = *req.Value
	}
	if req.ClearMaxDiscount {
		v.MaxDiscountAmount = nil
		updates["max_discount_amount"] = nil
	} else if req.MaxDiscountAmount != nil {
		v.MaxDiscountAmount = req.MaxDiscountAmount
		updates["max_discount_amount"] = *req.MaxDiscountAmount
	}
	if req.MinOrderAmount != nil {
		v.MinOrderAmount = *req.MinOrderAmount
		updates["min_order_amount"] = *req.MinOrderAmount
	}
	if req.StartsAt != nil {
		v.StartsAt = utcPtr(req.StartsAt)
		updates["starts_at"] = v.StartsAt
	}
	if req.ExpiresAt != nil {
		v.ExpiresAt = utcPtr(req.ExpiresAt)
		updates["expires_at"] = v.ExpiresAt
	}
	if req.UsageLimit != nil {
		v.UsageLimit = *req.UsageLimit
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.UsageLimitPerUser != nil {
		v.UsageLimitPerUser = *req.UsageLimitPerUser
		updates["usage_limit_per_user"] = *req.UsageLimitPerUser
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := validateVoucherTerms(v.DiscountType, v.Value, v.MaxDiscountAmount, v.MinOrderAmount,
		v.UsageLimit, v.UsageLimitPerUser, v.StartsAt, v.ExpiresAt); err != nil {
		return nil, err
	}

	updated, err := s.Repo.UpdateVoucher(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.Events, events.TopicCatalog, id.String(), "voucher_updated", map[string]any{"code": updated.Code})
	return updated, nil
}

func (s *VoucherService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.Repo.DeleteVoucher(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: voucher", ErrNotFound)
	}
	emit(ctx, s.Events, events.TopicCatalog, id.String(), "voucher_deleted", nil)
	return nil
}

// Validate previews the discount the code would give on subtotal without consuming a use.
func (s *VoucherService) Validate(ctx context.Context, actor Actor, req transport.ValidateVoucherRequest) (*transport.VoucherPreview, error) {
	if req.Subtotal.IsNegative() {
		return nil, invalidf("subtotal must be >= 0")
	}
	v, err := lookupVoucher(ctx, s.Repo, req.Code)
	if err != nil {
		return nil, err
	}
	if err := checkVoucher(ctx, s.Repo, v, req.Subtotal, s.Now.now(), redeemer{UserID: actor.UserID}); err != nil {
		return nil, err
	}

	return &transport.VoucherPreview{
		Code:         v.Code,
		DiscountType: v.DiscountType,
		Value:        v.Value,
		Discount:     pricing.DiscountAmount(v.Discount(), req.Subtotal),
	}, nil
}
