package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const orderCounter = "order_number"

type OrderService struct {
	Repo     *repo.GormRepo
	Shipping pricing.Shipping
	Events   events.Publisher
	Now      Clock
}

type contact struct {
	name, email, phone string
}

func (s *OrderService) resolveContact(ctx context.Context, actor Actor, req transport.CheckoutRequest) (contact, error) {
	if actor.UserID != nil {
		u, err := s.Repo.GetUser(ctx, *actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return contact{}, invalid(CodeInvalidContact, "user account not found")
			}
			return contact{}, err
		}
		return contact{name: u.Name, email: u.Email, phone: u.Phone}, nil
	}

	if actor.SessionID == "" {
		return contact{}, invalid(CodeSessionRequired, "sign in or send an X-Session-ID header")
	}
	c := contact{
		name:  strings.TrimSpace(req.GuestName),
		phone: strings.TrimSpace(req.GuestPhone),
	}
	var missing []string
	if c.name == "" {
		missing = append(missing, "guest_name")
	}
	email, err := normalizeEmail(req.GuestEmail)
	if err != nil {
		missing = append(missing, "guest_email")
	}
	c.email = email
	if c.phone == "" {
		missing = append(missing, "guest_phone")
	}
	if len(missing) > 0 {
		return contact{}, invalid(CodeInvalidContact, "missing or invalid: "+strings.Join(missing, ", "))
	}
	return c, nil
}

func normalizeAddress(a models.Address) (models.Address, error) {
	a = models.Address{
		Recipient:  strings.TrimSpace(a.Recipient),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
		Phone:      strings.TrimSpace(a.Phone),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"recipient", a.Recipient},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
		{"phone", a.Phone},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return a, invalid(CodeInvalidShipping, "shipping address is missing: "+strings.Join(missing, ", "))
	}
	return a, nil
}

// Checkout turns the caller's cart into an order in one transaction. Stock
// and voucher usage are taken with guarded updates, so a concurrent checkout
// that loses the race fails instead of overselling.
func (s *OrderService) Checkout(ctx context.Context, actor Actor, req transport.CheckoutRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "orders.checkout")

	who, err := s.resolveContact(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	addr, err := normalizeAddress(req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	now := s.Now.now()
	var order *models.Order

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := findCart(ctx, tx, actor)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return invalid(CodeCartEmpty, "cart is empty")
		}

		lines := make([]pricing.Line, 0, len(cart.Items))
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			p := it.Product
			if !p.IsActive {
				return invalid(CodeProductUnavailable, fmt.Sprintf("%s is no longer available", p.SKU))
			}
			if it.Quantity > p.StockQuantity {
				return invalid(CodeInsufficientStock, fmt.Sprintf("only %d of %s in stock", p.StockQuantity, p.SKU))
			}

			line := pricing.Line{UnitPrice: p.PriceExcludingVAT, VATRate: p.VATRate, Quantity: it.Quantity}
			lines = append(lines, line)
			items = append(items, models.OrderItem{
				ProductID:      p.ID,
				SKU:            p.SKU,
				ProductName:    p.Name,
				UnitPriceExVAT: p.PriceExcludingVAT,
				VATRate:        p.VATRate,
				UnitVAT:        pricing.UnitVAT(p.PriceExcludingVAT, p.VATRate),
				Quantity:       it.Quantity,
				LineSubtotal:   line.Subtotal(),
				LineVAT:        line.VAT(),
				LineTotal:      line.Subtotal().Add(line.VAT()),
			})
		}

		var voucher *models.Voucher
		var discount *pricing.Discount
		if cart.VoucherID != nil {
			voucher, err = tx.GetVoucher(ctx, *cart.VoucherID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalid(CodeVoucherNotFound, "voucher does not exist")
				}
				return err
			}
			subtotal := pricing.Compute(lines, nil, s.Shipping).Subtotal
			if err := checkVoucher(ctx, tx, voucher, subtotal, now, redeemer{UserID: actor.UserID, Email: who.email}); err != nil {
				return err
			}
			d := voucher.Discount()
			discount = &d
		}
		totals := pricing.Compute(lines, discount, s.Shipping)

		seq, err := tx.NextValue(ctx, orderCounter)
		if err != nil {
			return err
		}

		order = &models.Order{
			OrderNumber:     fmt.Sprintf("ORD-%s-%06d", now.Format("20060102"), seq),
			Status:          models.OrderPending,
			PaymentStatus:   models.PaymentStatusPending,
			ShippingAddress: datatypes.NewJSONType(addr),
			Subtotal:        totals.Subtotal,
			VATAmount:       totals.VAT,
			DiscountAmount:  totals.Discount,
			ShippingCost:    totals.Shipping,
			Total:           totals.Total,
			Note:            strings.TrimSpace(req.Note),
			Items:           items,
		}
		if actor.UserID != nil {
			uid := *actor.UserID
			order.UserID = &uid
		} else {
			sid := actor.SessionID
			order.SessionID = &sid
			order.GuestName = who.name
			order.GuestEmail = who.email
			order.GuestPhone = who.phone
		}
		if voucher != nil {
			order.VoucherID = &voucher.ID
			order.VoucherCode = voucher.Code
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, it := range items {
			ok, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return invalid(CodeInsufficientStock, fmt.Sprintf("%s sold out during checkout", it.SKU))
			}
		}

		if voucher != nil {
			ok, err := tx.IncrementVoucherUsage(ctx, voucher.ID)
			if err != nil {
				return err
			}
			if !ok {
				return invalid(CodeVoucherUsageLimit, "voucher usage limit reached")
			}
			if err := tx.CreateVoucherUsage(ctx, &models.VoucherUsage{
				VoucherID: voucher.ID,
				OrderID:   order.ID,
				UserID:    order.UserID,
				Email:     who.email,
			}); err != nil {
				return err
			}
		}

		return tx.DeleteCart(ctx, cart.ID)
	})
	if err != nil {
		var ce *CodedError
		if !errors.As(err, &ce) {
			l.Error("checkout_error", "error", err)
		}
		return nil, err
	}

	l.Info("order_placed", "order_number", order.OrderNumber, "total", order.Total.StringFixed(2))
	emit(ctx, s.Events, events.TopicOrders, order.OrderNumber, "order_created", map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"total":        order.Total.StringFixed(2),
		"items":        len(order.Items),
	})
	return order, nil
}

func canView(actor Actor, o *models.Order) bool {
	if actor.IsStaff() {
		return true
	}
	if o.UserID != nil {
		return actor.UserID != nil && *actor.UserID == *o.UserID
	}
	return o.SessionID != nil && actor.SessionID != "" && actor.SessionID == *o.SessionID
}

// visibleOrder loads an order the actor may see. Orders owned by someone
// else are reported as missing.
func visibleOrder(ctx context.Context, r *repo.GormRepo, actor Actor, number string) (*models.Order, error) {
	o, err := r.GetOrderByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !canView(actor, o) {
		return nil, fmt.Errorf("%w: order", ErrNotFound)
	}
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, actor Actor, number string) (*models.Order, error) {
	return visibleOrder(ctx, s.Repo, actor, number)
}

func (s *OrderService) ListMine(ctx context.Context, actor Actor, offset, limit int) (int64, []models.Order, error) {
	if actor.UserID == nil {
		return 0, nil, fmt.Errorf("%w: sign in to list orders", ErrUnauthorized)
	}
	return s.Repo.ListOrdersByUser(ctx, *actor.UserID, offset, limit)
}

func (s *OrderService) List(ctx context.Context, f repo.OrderFilter, offset, limit int) (int64, []models.Order, error) {
	if f.Status != "" && !models.ValidOrderStatus(f.Status) {
		return 0, nil, invalidf("unknown status %q", f.Status)
	}
	switch f.PaymentStatus {
	case "", models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed:
	default:
		return 0, nil, invalidf("unknown payment_status %q", f.PaymentStatus)
	}
	return s.Repo.ListOrders(ctx, f, offset, limit)
}

// UpdateStatus advances an order one step along the fulfilment chain.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, number string, req transport.UpdateStatusRequest) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: staff only", ErrForbidden)
	}
	to := strings.TrimSpace(req.Status)
	if !models.ValidOrderStatus(to) {
		return nil, invalidf("unknown status %q", to)
	}
	if to == models.OrderCancelled {
		return s.Cancel(ctx, actor, number)
	}

	o, err := visibleOrder(ctx, s.Repo, actor, number)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(o.Status, to) {
		return nil, conflict(CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", o.Status, to))
	}
	if to == models.OrderPaid && o.PaymentStatus != models.PaymentStatusPaid {
		return nil, conflict(CodeInvalidTransition, "payment has not been verified")
	}

	now := s.Now.now()
	updates := map[string]any{"status": to}
	switch to {
	case models.OrderPaid:
		if o.PaidAt == nil {
			updates["paid_at"] = now
		}
	case models.OrderShipped:
		updates["shipped_at"] = now
		if tn := strings.TrimSpace(req.TrackingNumber); tn != "" {
			updates["tracking_number"] = tn
		}
	case models.OrderDelivered:
		updates["delivered_at"] = now
	}

	ok, err := s.Repo.UpdateOrderFields(ctx, o.ID, o.Status, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflict(CodeInvalidTransition, "order status changed concurrently")
	}

	emit(ctx, s.Events, events.TopicOrders, o.OrderNumber, "order_status_changed", map[string]any{
		"order_number": o.OrderNumber,
		"from":         o.Status,
		"to":           to,
	})
	return s.Repo.GetOrder(ctx, o.ID)
}

// Cancel cancels an order and puts its items back in stock. Owners may
// cancel only while the order is pending; staff until it ships.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, number string) (*models.Order, error) {
	o, err := visibleOrder(ctx, s.Repo, actor, number)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && o.Status != models.OrderPending {
		return nil, conflict(CodeInvalidTransition, "order can no longer be cancelled")
	}
	if !models.CanCancel(o.Status) {
		return nil, conflict(CodeInvalidTransition, fmt.Sprintf("cannot cancel a %s order", o.Status))
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.UpdateOrderFields(ctx, o.ID, o.Status, map[string]any{
			"status":       models.OrderCancelled,
			"cancelled_at": s.Now.now(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeInvalidTransition, "order status changed concurrently")
		}
		for _, it := range o.Items {
			if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.Events, events.TopicOrders, o.OrderNumber, "order_cancelled", map[string]any{
		"order_number": o.OrderNumber,
		"from":         o.Status,
	})
	return s.Repo.GetOrder(ctx, o.ID)
}
