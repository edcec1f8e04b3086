package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestCheckout_SnapshotsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, a := f.user(t, models.RoleCustomer)
	p := f.product(t, "100", 5)
	f.voucher(t, transport.VoucherRequest{Code: "TEN", Value: dec("10")})

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, a, "TEN")
	require.NoError(t, err)

	o, err := f.orders.Checkout(ctx, a, checkoutReq(a))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD-%s-000001", f.now.Format("20060102")), o.OrderNumber)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, models.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "TEN", o.VoucherCode)
	assertDec(t, "100", o.Subtotal)
	assertDec(t, "7", o.VATAmount)
	assertDec(t, "10", o.DiscountAmount)
	assertDec(t, "97", o.Total)
	assert.Equal(t, "Bangkok", o.ShippingAddress.Data().City)

	price := dec("250")
	_, err = f.catalog.PatchProduct(ctx, p.ID, transport.PatchProductRequest{PriceExcludingVAT: &price})
	require.NoError(t, err)

	got, err := f.orders.Get(ctx, a, o.OrderNumber)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, p.SKU, got.Items[0].SKU)
	assertDec(t, "100", got.Items[0].UnitPriceExVAT)
	assertDec(t, "7", got.Items[0].UnitVAT)
	assertDec(t, "107", got.Items[0].LineTotal)
	assertDec(t, "97", got.Total)

	stocked, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stocked.StockQuantity)

	cart, err := f.carts.Get(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, cart.ID)

	v, err := f.repo.GetVoucherByCode(ctx, "TEN")
	require.NoError(t, err)
	assert.Equal(t, 1, v.UsedCount)
}

func TestCheckout_OrderNumbersIncrease(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 5)

	first := f.placeOrder(t, guest(), p, 1)
	second := f.placeOrder(t, guest(), p, 1)
	assert.True(t, strings.HasSuffix(first.OrderNumber, "-000001"))
	assert.True(t, strings.HasSuffix(second.OrderNumber, "-000002"))
}

func TestCheckout_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "10", 5)

	_, err := f.orders.Checkout(ctx, a, checkoutReq(a))
	assert.Equal(t, CodeCartEmpty, codeOf(err))

	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	noEmail := checkoutReq(a)
	noEmail.GuestEmail = ""
	_, err = f.orders.Checkout(ctx, a, noEmail)
	assert.Equal(t, CodeInvalidContact, codeOf(err))

	noCity := checkoutReq(a)
	noCity.ShippingAddress.City = " "
	_, err = f.orders.Checkout(ctx, a, noCity)
	assert.Equal(t, CodeInvalidShipping, codeOf(err))

	_, err = f.catalog.AdjustStock(ctx, p.ID, -4)
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, a, checkoutReq(a))
	assert.Equal(t, CodeInsufficientStock, codeOf(err))

	_, err = f.orders.Checkout(ctx, Actor{}, checkoutReq(Actor{}))
	assert.Equal(t, CodeSessionRequired, codeOf(err))
}

func TestCheckout_GuestContactStored(t *testing.T) {
	f := newFixture(t)
	a := guest()
	p := f.product(t, "10", 5)

	o := f.placeOrder(t, a, p, 1)
	assert.Nil(t, o.UserID)
	assert.Equal(t, "Guest Buyer", o.GuestName)
	assert.Equal(t, "guest@example.com", o.GuestEmail)

	got, err := f.orders.Get(context.Background(), a, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestCheckout_VoucherLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "100", 10)
	f.voucher(t, transport.VoucherRequest{Code: "ONCE", Value: dec("10"), UsageLimit: 1})
	f.voucher(t, transport.VoucherRequest{Code: "MINE", Value: dec("10"), UsageLimitPerUser: 1})

	_, first := f.user(t, models.RoleCustomer)
	_, second := f.user(t, models.RoleCustomer)
	for _, a := range []Actor{first, second} {
		_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
		_, err = f.carts.ApplyVoucher(ctx, a, "ONCE")
		require.NoError(t, err)
	}

	_, err := f.orders.Checkout(ctx, first, checkoutReq(first))
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, second, checkoutReq(second))
	assert.Equal(t, CodeVoucherUsageLimit, codeOf(err))

	_, err = f.carts.AddItem(ctx, first, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, first, "MINE")
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, first, checkoutReq(first))
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, first, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, first, "MINE")
	assert.Equal(t, CodeVoucherUserLimit, codeOf(err))
}

func TestOrders_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	_, other := f.user(t, models.RoleCustomer)
	_, staff := f.user(t, models.RoleStaff)
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, owner, p, 1)

	_, err := f.orders.Get(ctx, other, o.OrderNumber)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.orders.Get(ctx, guest(), o.OrderNumber)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.orders.Get(ctx, staff, o.OrderNumber)
	assert.NoError(t, err)

	total, mine, err := f.orders.ListMine(ctx, owner, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, o.OrderNumber, mine[0].OrderNumber)

	total, _, err = f.orders.ListMine(ctx, other, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	total, _, err = f.orders.List(ctx, repo.OrderFilter{Status: models.OrderPending}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = f.orders.List(ctx, repo.OrderFilter{Status: "lost"}, 0, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	_, staff := f.user(t, models.RoleStaff)
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, owner, p, 1)

	_, err := f.orders.UpdateStatus(ctx, owner, o.OrderNumber, transport.UpdateStatusRequest{Status: models.OrderPaid})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.UpdateStatus(ctx, staff, o.OrderNumber, transport.UpdateStatusRequest{Status: models.OrderPaid})
	assert.Equal(t, CodeInvalidTransition, codeOf(err))

	_, err = f.orders.UpdateStatus(ctx, staff, o.OrderNumber, transport.UpdateStatusRequest{Status: models.OrderShipped})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.orders.UpdateStatus(ctx, staff, o.OrderNumber, transport.UpdateStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCancel_RestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, models.RoleCustomer)
	p := f.product(t, "10", 5)
	o := f.placeOrder(t, owner, p, 3)

	got, err := f.orders.Cancel(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)

	stocked, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stocked.StockQuantity)

	_, err = f.orders.Cancel(ctx, owner, o.OrderNumber)
	assert.Equal(t, CodeInvalidTransition, codeOf(err))
}
