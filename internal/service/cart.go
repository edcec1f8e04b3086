package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
)

const maxLineQuantity = 999

type CartService struct {
	Repo     *repo.GormRepo
	Shipping pricing.Shipping
	Events   events.Publisher
	Now      Clock
}

func requireOwner(actor Actor) error {
	if actor.UserID == nil && actor.SessionID == "" {
		return invalid(CodeSessionRequired, "sign in or send an X-Session-ID header")
	}
	return nil
}

// findCart returns the caller's cart, or nil when none exists yet.
func findCart(ctx context.Context, r *repo.GormRepo, actor Actor) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	if actor.UserID != nil {
		cart, err = r.GetCartByUser(ctx, *actor.UserID)
	} else {
		cart, err = r.GetCartBySession(ctx, actor.SessionID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return cart, err
}

func ensureCart(ctx context.Context, r *repo.GormRepo, actor Actor) (*models.Cart, error) {
	cart, err := findCart(ctx, r, actor)
	if err != nil || cart != nil {
		return cart, err
	}

	cart = &models.Cart{}
	if actor.UserID != nil {
		id := *actor.UserID
		cart.UserID = &id
	} else {
		sid := actor.SessionID
		cart.SessionID = &sid
	}
	if err := r.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func cartKey(actor Actor) string {
	if actor.UserID != nil {
		return actor.UserID.String()
	}
	return actor.SessionID
}

// priceLines converts cart items into pricing lines, skipping inactive products.
func priceLines(cart *models.Cart) []pricing.Line {
	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		if !it.Product.IsActive {
			continue
		}
		lines = append(lines, pricing.Line{
			UnitPrice: it.Product.PriceExcludingVAT,
			VATRate:   it.Product.VATRate,
			Quantity:  it.Quantity,
		})
	}
	return lines
}

func (s *CartService) Get(ctx context.Context, actor Actor) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, cart)
}

func (s *CartService) view(ctx context.Context, actor Actor, cart *models.Cart) (*transport.CartView, error) {
	view := &transport.CartView{Items: []transport.CartItemView{}}
	if cart == nil {
		view.Total = pricing.Compute(nil, nil, s.Shipping).Total
		return view, nil
	}
	view.ID = &cart.ID

	for _, it := range cart.Items {
		p := it.Product
		line := pricing.Line{UnitPrice: p.PriceExcludingVAT, VATRate: p.VATRate, Quantity: it.Quantity}
		view.Items = append(view.Items, transport.CartItemView{
			ID:               it.ID,
			ProductID:        p.ID,
			SKU:              p.SKU,
			Name:             p.Name,
			ImageURL:         p.ImageURL,
			UnitPriceExVAT:   p.PriceExcludingVAT,
			UnitPriceInclVAT: p.PriceIncludingVAT,
			VATRate:          p.VATRate,
			Quantity:         it.Quantity,
			LineSubtotal:     line.Subtotal(),
			LineVAT:          line.VAT(),
			StockQuantity:    p.StockQuantity,
			Available:        p.IsActive && p.StockQuantity >= it.Quantity,
		})
		if p.IsActive {
			view.ItemCount += it.Quantity
		}
	}

	lines := priceLines(cart)
	var discount *pricing.Discount
	if cart.VoucherID != nil {
		v, err := s.Repo.GetVoucher(ctx, *cart.VoucherID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			view.VoucherError = CodeVoucherNotFound
		case err != nil:
			return nil, err
		default:
			view.VoucherCode = v.Code
			subtotal := pricing.Compute(lines, nil, s.Shipping).Subtotal
			if err := checkVoucher(ctx, s.Repo, v, subtotal, s.Now.now(), redeemer{UserID: actor.UserID}); err != nil {
				var ce *CodedError
				if !errors.As(err, &ce) {
					return nil, err
				}
				view.VoucherError = ce.Code
			} else {
				d := v.Discount()
				discount = &d
			}
		}
	}

	t := pricing.Compute(lines, discount, s.Shipping)
	view.Subtotal = t.Subtotal
	view.VAT = t.VAT
	view.Discount = t.Discount
	view.Shipping = t.Shipping
	view.Total = t.Total
	return view, nil
}

func (s *CartService) reload(ctx context.Context, actor Actor) (*transport.CartView, error) {
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, cart)
}

func (s *CartService) AddItem(ctx context.Context, actor Actor, req transport.AddItemRequest) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 || req.Quantity > maxLineQuantity {
		return nil, invalidf("quantity must be between 1 and %d", maxLineQuantity)
	}

	p, err := s.Repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if !p.IsActive {
		return nil, invalid(CodeProductUnavailable, fmt.Sprintf("%s is not available", p.SKU))
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := ensureCart(ctx, tx, actor)
		if err != nil {
			return err
		}

		existing, err := tx.FindCartItem(ctx, cart.ID, p.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		qty := req.Quantity
		if existing != nil {
			qty += existing.Quantity
		}
		if qty > p.StockQuantity {
			return invalid(CodeInsufficientStock, fmt.Sprintf("only %d of %s in stock", p.StockQuantity, p.SKU))
		}
		if qty > maxLineQuantity {
			return invalidf("quantity must be between 1 and %d", maxLineQuantity)
		}

		if existing != nil {
			return tx.SetCartItemQuantity(ctx, existing.ID, qty)
		}
		return tx.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: qty})
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.Events, events.TopicCart, cartKey(actor), "cart_item_added", map[string]any{
		"product_id": p.ID.String(),
		"quantity":   req.Quantity,
	})
	return s.reload(ctx, actor)
}

// UpdateItem sets the quantity of a line; zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, actor Actor, itemID uuid.UUID, qty int) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if qty < 0 || qty > maxLineQuantity {
		return nil, invalidf("quantity must be between 0 and %d", maxLineQuantity)
	}
	if qty == 0 {
		return s.RemoveItem(ctx, actor, itemID)
	}

	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	item, err := s.Repo.GetCartItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, notFound(err, "cart item")
	}
	p, err := s.Repo.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if qty > p.StockQuantity {
		return nil, invalid(CodeInsufficientStock, fmt.Sprintf("only %d of %s in stock", p.StockQuantity, p.SKU))
	}

	if err := s.Repo.SetCartItemQuantity(ctx, item.ID, qty); err != nil {
		return nil, err
	}
	emit(ctx, s.Events, events.TopicCart, cartKey(actor), "cart_item_updated", map[string]any{
		"product_id": p.ID.String(),
		"quantity":   qty,
	})
	return s.reload(ctx, actor)
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, itemID uuid.UUID) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}

	deleted, err := s.Repo.DeleteCartItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	emit(ctx, s.Events, events.TopicCart, cartKey(actor), "cart_item_removed", map[string]any{
		"item_id": itemID.String(),
	})
	return s.reload(ctx, actor)
}

func (s *CartService) Clear(ctx context.Context, actor Actor) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		if err := s.Repo.ClearCart(ctx, cart.ID); err != nil {
			return nil, err
		}
		emit(ctx, s.Events, events.TopicCart, cartKey(actor), "cart_cleared", nil)
	}
	return s.reload(ctx, actor)
}

// ApplyVoucher validates code against the current cart before attaching it.
func (s *CartService) ApplyVoucher(ctx context.Context, actor Actor, code string) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, invalid(CodeCartEmpty, "cart is empty")
	}

	v, err := lookupVoucher(ctx, s.Repo, code)
	if err != nil {
		return nil, err
	}
	subtotal := pricing.Compute(priceLines(cart), nil, s.Shipping).Subtotal
	if err := checkVoucher(ctx, s.Repo, v, subtotal, s.Now.now(), redeemer{UserID: actor.UserID}); err != nil {
		return nil, err
	}

	if err := s.Repo.SetCartVoucher(ctx, cart.ID, &v.ID); err != nil {
		return nil, err
	}
	emit(ctx, s.Events, events.TopicCart, cartKey(actor), "voucher_applied", map[string]any{"code": v.Code})
	return s.reload(ctx, actor)
}

func (s *CartService) RemoveVoucher(ctx context.Context, actor Actor) (*transport.CartView, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	cart, err := findCart(ctx, s.Repo, actor)
	if err != nil {
		return nil, err
	}
	if cart != nil && cart.VoucherID != nil {
		if err := s.Repo.SetCartVoucher(ctx, cart.ID, nil); err != nil {
			return nil, err
		}
		emit(ctx, s.Events, events.TopicCart, cartKey(actor), "voucher_removed", nil)
	}
	return s.reload(ctx, actor)
}

// Merge moves the guest cart of actor.SessionID into the signed-in user's
// cart. Quantities of the same product are added and capped at stock.
func (s *CartService) Merge(ctx context.Context, actor Actor) (*transport.CartView, error) {
	if actor.UserID == nil {
		return nil, fmt.Errorf("%w: sign in to merge a cart", ErrUnauthorized)
	}
	userActor := Actor{UserID: actor.UserID, Role: actor.Role}
	if actor.SessionID == "" {
		return s.reload(ctx, userActor)
	}

	merged := 0
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		guest, err := findCart(ctx, tx, Actor{SessionID: actor.SessionID})
		if err != nil || guest == nil {
			return err
		}
		target, err := ensureCart(ctx, tx, userActor)
		if err != nil {
			return err
		}

		for _, it := range guest.Items {
			existing, err := tx.FindCartItem(ctx, target.ID, it.ProductID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			qty := it.Quantity
			if existing != nil {
				qty += existing.Quantity
			}
			qty = min(qty, it.Product.StockQuantity, maxLineQuantity)

			switch {
			case qty <= 0 && existing != nil:
				if _, err := tx.DeleteCartItem(ctx, target.ID, existing.ID); err != nil {
					return err
				}
			case qty <= 0:
			case existing != nil:
				if err := tx.SetCartItemQuantity(ctx, existing.ID, qty); err != nil {
					return err
				}
			default:
				if err := tx.CreateCartItem(ctx, &models.CartItem{CartID: target.ID, ProductID: it.ProductID, Quantity: qty}); err != nil {
					return err
				}
			}
			merged++
		}

		if target.VoucherID == nil && guest.VoucherID != nil {
			if err := tx.SetCartVoucher(ctx, target.ID, guest.VoucherID); err != nil {
				return err
			}
		}
		return tx.DeleteCart(ctx, guest.ID)
	})
	if err != nil {
		return nil, err
	}

	if merged > 0 {
		emit(ctx, s.Events, events.TopicCart, actor.UserID.String(), "cart_merged", map[string]any{
			"lines": merged,
		})
	}
	return s.reload(ctx, userActor)
}
