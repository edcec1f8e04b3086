package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestCart_WorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "100", 10)
	f.voucher(t, transport.VoucherRequest{Code: "TEN", Value: dec("10")})

	view, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.ItemCount)
	assertDec(t, "100", view.Subtotal)
	assertDec(t, "7", view.VAT)
	assertDec(t, "107", view.Total)
	assertDec(t, "107", view.Items[0].UnitPriceInclVAT)

	view, err = f.carts.ApplyVoucher(ctx, a, "ten")
	require.NoError(t, err)
	assert.Equal(t, "TEN", view.VoucherCode)
	assert.Empty(t, view.VoucherError)
	assertDec(t, "10", view.Discount)
	assertDec(t, "97", view.Total)

	view, err = f.carts.RemoveVoucher(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, view.VoucherCode)
	assertDec(t, "107", view.Total)
}

func TestCart_RequiresOwner(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "100", 10)

	_, err := f.carts.AddItem(context.Background(), Actor{}, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	assert.Equal(t, CodeSessionRequired, codeOf(err))
}

func TestCart_EmptyView(t *testing.T) {
	f := newFixture(t)

	view, err := f.carts.Get(context.Background(), guest())
	require.NoError(t, err)
	assert.Nil(t, view.ID)
	assert.Empty(t, view.Items)
	assertDec(t, "0", view.Total)
}

func TestCart_StockLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "10", 3)

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 2})
	assert.Equal(t, CodeInsufficientStock, codeOf(err))

	view, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)

	_, err = f.carts.UpdateItem(ctx, a, view.Items[0].ID, 4)
	assert.Equal(t, CodeInsufficientStock, codeOf(err))

	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCart_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "10", 5)
	q := f.product(t, "20", 5)

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	view, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: q.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	view, err = f.carts.UpdateItem(ctx, a, view.Items[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount)
	assertDec(t, "50", view.Subtotal)

	view, err = f.carts.UpdateItem(ctx, a, view.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	_, err = f.carts.RemoveItem(ctx, guest(), view.Items[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	view, err = f.carts.Clear(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCart_InactiveProductExcludedFromTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "100", 5)
	q := f.product(t, "20", 5)

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: q.ID, Quantity: 1})
	require.NoError(t, err)

	inactive := false
	_, err = f.catalog.PatchProduct(ctx, q.ID, transport.PatchProductRequest{IsActive: &inactive})
	require.NoError(t, err)

	view, err := f.carts.Get(ctx, a)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 1, view.ItemCount)
	assertDec(t, "107", view.Total)

	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: q.ID, Quantity: 1})
	assert.Equal(t, CodeProductUnavailable, codeOf(err))
}

func TestApplyVoucher_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "100", 10)

	_, err := f.carts.ApplyVoucher(ctx, a, "ANY")
	assert.Equal(t, CodeCartEmpty, codeOf(err))

	_, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	inactive := false
	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)
	f.voucher(t, transport.VoucherRequest{Code: "OFF", Value: dec("10"), IsActive: &inactive})
	f.voucher(t, transport.VoucherRequest{Code: "OLD", Value: dec("10"), ExpiresAt: &past})
	f.voucher(t, transport.VoucherRequest{Code: "SOON", Value: dec("10"), StartsAt: &future})
	f.voucher(t, transport.VoucherRequest{Code: "BIG", Value: dec("10"), MinOrderAmount: dec("1000")})
	used := f.voucher(t, transport.VoucherRequest{Code: "ONCE", Value: dec("10"), UsageLimit: 1})
	ok, err := f.repo.IncrementVoucherUsage(ctx, used.ID)
	require.NoError(t, err)
	require.True(t, ok)

	cases := map[string]string{
		"MISSING": CodeVoucherNotFound,
		"OFF":     CodeVoucherInactive,
		"OLD":     CodeVoucherExpired,
		"SOON":    CodeVoucherNotStarted,
		"BIG":     CodeVoucherMinOrder,
		"ONCE":    CodeVoucherUsageLimit,
	}
	for code, want := range cases {
		_, err := f.carts.ApplyVoucher(ctx, a, code)
		assert.ErrorIs(t, err, ErrValidation, code)
		assert.Equal(t, want, codeOf(err), code)
	}
}

func TestCart_AppliedVoucherBecomesInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := guest()
	p := f.product(t, "100", 10)
	v := f.voucher(t, transport.VoucherRequest{Code: "TEN", Value: dec("10")})

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, a, "TEN")
	require.NoError(t, err)

	inactive := false
	_, err = f.vouchers.Patch(ctx, v.ID, transport.PatchVoucherRequest{IsActive: &inactive})
	require.NoError(t, err)

	view, err := f.carts.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "TEN", view.VoucherCode)
	assert.Equal(t, CodeVoucherInactive, view.VoucherError)
	assertDec(t, "0", view.Discount)
	assertDec(t, "107", view.Total)
}

func TestCart_Shipping(t *testing.T) {
	f := newFixture(t)
	f.carts.Shipping = pricing.Shipping{FlatFee: dec("50"), FreeMin: dec("1000")}
	ctx := context.Background()
	a := guest()
	p := f.product(t, "500", 10)

	view, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	assertDec(t, "50", view.Shipping)
	assertDec(t, "585", view.Total)

	view, err = f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	assertDec(t, "0", view.Shipping)
	assertDec(t, "1070", view.Total)
}

func TestMerge_GuestCartIntoUserCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, user := f.user(t, models.RoleCustomer)
	g := guest()
	p := f.product(t, "10", 4)
	q := f.product(t, "20", 4)
	f.voucher(t, transport.VoucherRequest{Code: "TEN", Value: dec("10")})

	_, err := f.carts.AddItem(ctx, user, transport.AddItemRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, g, transport.AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, g, transport.AddItemRequest{ProductID: q.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, g, "TEN")
	require.NoError(t, err)

	merged := user
	merged.SessionID = g.SessionID
	view, err := f.carts.Merge(ctx, merged)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	qty := map[string]int{}
	for _, it := range view.Items {
		qty[it.SKU] = it.Quantity
	}
	assert.Equal(t, 4, qty[p.SKU])
	assert.Equal(t, 1, qty[q.SKU])
	assert.Equal(t, "TEN", view.VoucherCode)

	left, err := f.carts.Get(ctx, g)
	require.NoError(t, err)
	assert.Nil(t, left.ID)

	_, err = f.carts.Merge(ctx, g)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
