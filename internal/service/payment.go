package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type PaymentService struct {
	Repo         *repo.GormRepo
	Store        storage.Store
	Events       events.Publisher
	MaxSlipBytes int64
	Now          Clock
}

type SlipUpload struct {
	Amount        decimal.Decimal
	TransferredAt *time.Time
	File          io.Reader
}

// UploadSlip records a new payment attempt for an unpaid order. A new
// attempt is allowed only when no attempt is pending and none was verified.
func (s *PaymentService) UploadSlip(ctx context.Context, actor Actor, number string, up SlipUpload) (*models.Payment, error) {
	l := logging.FromContext(ctx).With("svc", "payments.upload_slip")

	o, err := visibleOrder(ctx, s.Repo, actor, number)
	if err != nil {
		return nil, err
	}
	if err := s.canAcceptSlip(ctx, o); err != nil {
		return nil, err
	}

	amount := up.Amount
	if amount.IsZero() {
		amount = o.Total
	}
	if !amount.IsPositive() {
		return nil, invalid(CodeInvalidSlip, "amount must be positive")
	}
	if up.File == nil {
		return nil, invalid(CodeInvalidSlip, "slip image is required")
	}

	key, contentType, err := s.Store.Save(ctx, "slips", up.File, s.MaxSlipBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupported) {
			return nil, invalid(CodeInvalidSlip, err.Error())
		}
		return nil, err
	}

	p := &models.Payment{
		OrderID:         o.ID,
		Amount:          amount.Round(2),
		TransferredAt:   utcPtr(up.TransferredAt),
		SlipPath:        key,
		SlipContentType: contentType,
		Status:          models.PaymentPending,
		UploadedBy:      actor.UserID,
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		last, err := tx.LatestPayment(ctx, o.ID)
		if err != nil {
			return err
		}
		p.Attempt = 1
		if last != nil {
			if last.Status == models.PaymentPending {
				return conflict(CodePaymentPending, "a payment is already awaiting verification")
			}
			p.Attempt = last.Attempt + 1
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			if isDuplicate(err) {
				return conflict(CodePaymentPending, "a payment is already awaiting verification")
			}
			return err
		}
		_, err = tx.UpdateOrderFields(ctx, o.ID, "", map[string]any{"payment_status": models.PaymentStatusPending})
		return err
	})
	if err != nil {
		if dErr := s.Store.Delete(ctx, key); dErr != nil {
			l.Warn("slip_cleanup_error", "key", key, "error", dErr)
		}
		return nil, err
	}

	emit(ctx, s.Events, events.TopicPayments, o.OrderNumber, "payment_uploaded", map[string]any{
		"payment_id":   p.ID.String(),
		"order_number": o.OrderNumber,
		"attempt":      p.Attempt,
		"amount":       p.Amount.StringFixed(2),
	})
	return p, nil
}

func (s *PaymentService) canAcceptSlip(ctx context.Context, o *models.Order) error {
	if o.Status == models.OrderCancelled {
		return conflict(CodeInvalidPaymentState, "order is cancelled")
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return conflict(CodeOrderAlreadyPaid, "order is already paid")
	}

	last, err := s.Repo.LatestPayment(ctx, o.ID)
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}
	switch last.Status {
	case models.PaymentPending:
		return conflict(CodePaymentPending, "a payment is already awaiting verification")
	case models.PaymentVerified:
		return conflict(CodeOrderAlreadyPaid, "order is already paid")
	}
	return nil
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, err := s.Repo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return p, nil
}

func (s *PaymentService) ListPending(ctx context.Context, offset, limit int) (int64, []models.Payment, error) {
	return s.Repo.ListPaymentsByStatus(ctx, models.PaymentPending, offset, limit)
}

func (s *PaymentService) ListForOrder(ctx context.Context, actor Actor, number string) ([]models.Payment, error) {
	o, err := visibleOrder(ctx, s.Repo, actor, number)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListPaymentsByOrder(ctx, o.ID)
}

// Slip opens the stored image of a payment. The caller closes the reader.
func (s *PaymentService) Slip(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.Store.Open(ctx, p.SlipPath)
	if err != nil {
		return nil, "", fmt.Errorf("open slip %s: %w", p.ID, err)
	}
	return rc, p.SlipContentType, nil
}

// Verify accepts a pending payment and marks its order paid.
func (s *PaymentService) Verify(ctx context.Context, actor Actor, id uuid.UUID) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff only", ErrForbidden)
	}
	now := s.Now.now()
	var orderNumber string

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		p, o, err := loadPending(ctx, tx, id)
		if err != nil {
			return err
		}
		if o.Status == models.OrderCancelled {
			return conflict(CodeInvalidPaymentState, "order is cancelled")
		}
		orderNumber = o.OrderNumber

		ok, err := tx.TransitionPayment(ctx, p.ID, map[string]any{
			"status":      models.PaymentVerified,
			"verified_by": actor.UserID,
			"verified_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidPaymentState, "payment is no longer pending")
		}

		updates := map[string]any{
			"payment_status": models.PaymentStatusPaid,
			"paid_at":        now,
		}
		if o.Status == models.OrderPending {
			updates["status"] = models.OrderPaid
		}
		ok, err = tx.UpdateOrderFields(ctx, o.ID, o.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidPaymentState, "order changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.Events, events.TopicPayments, orderNumber, "payment_verified", map[string]any{
		"payment_id":   id.String(),
		"order_number": orderNumber,
	})
	return s.Get(ctx, id)
}

// Reject declines a pending payment; the customer may then upload a new slip.
func (s *PaymentService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.Payment, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff only", ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid(CodeReasonRequired, "a rejection reason is required")
	}
	now := s.Now.now()
	var orderNumber string

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		p, o, err := loadPending(ctx, tx, id)
		if err != nil {
			return err
		}
		orderNumber = o.OrderNumber

		ok, err := tx.TransitionPayment(ctx, p.ID, map[string]any{
			"status":           models.PaymentRejected,
			"rejection_reason": reason,
			"verified_by":      actor.UserID,
			"verified_at":      now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidPaymentState, "payment is no longer pending")
		}
		_, err = tx.UpdateOrderFields(ctx, o.ID, "", map[string]any{"payment_status": models.PaymentStatusFailed})
		return err
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.Events, events.TopicPayments, orderNumber, "payment_rejected", map[string]any{
		"payment_id":   id.String(),
		"order_number": orderNumber,
		"reason":       reason,
	})
	return s.Get(ctx, id)
}

func loadPending(ctx context.Context, tx *repo.GormRepo, id uuid.UUID) (*models.Payment, *models.Order, error) {
	p, err := tx.GetPayment(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "payment")
	}
	if p.Status != models.PaymentPending {
		return nil, nil, conflict(CodeInvalidPaymentState, fmt.Sprintf("payment is already %s", p.Status))
	}
	o, err := tx.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, nil, notFound(err, "order")
	}
	return p, o, nil
}
