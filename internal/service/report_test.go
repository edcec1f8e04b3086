package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/report"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// paidOrder places and verifies an order of p with the TEN voucher applied.
func (f *fixture) paidOrder(t *testing.T, staff Actor, p *models.Product) *models.Order {
	t.Helper()
	ctx := context.Background()
	a := guest()

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyVoucher(ctx, a, "TEN")
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, a, checkoutReq(a))
	require.NoError(t, err)

	pay := f.uploadSlip(t, a, o)
	_, err = f.payments.Verify(ctx, staff, pay.ID)
	require.NoError(t, err)
	return o
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, staff := f.user(t, models.RoleStaff)
	p := f.product(t, "100", 10)
	f.voucher(t, transport.VoucherRequest{Code: "TEN", Value: dec("10")})

	f.paidOrder(t, staff, p)
	f.paidOrder(t, staff, p)
	f.placeOrder(t, guest(), p, 1)

	from := f.now.AddDate(0, 0, -1)
	to := f.now.AddDate(0, 0, 1)

	t.Run("summary", func(t *testing.T) {
		sum, err := f.reports.Summary(ctx, from, to)
		require.NoError(t, err)
		assert.Equal(t, 2, sum.OrderCount)
		assertDec(t, "194", sum.GrossTotal)
		assertDec(t, "180", sum.NetSales)
		assertDec(t, "14", sum.VAT)
		assertDec(t, "20", sum.Discounts)
		require.Len(t, sum.Daily, 1)
		assert.Equal(t, f.now.Format("2006-01-02"), sum.Daily[0].Date)
		assert.Equal(t, 2, sum.Daily[0].Orders)
	})

	t.Run("empty range", func(t *testing.T) {
		sum, err := f.reports.Summary(ctx, from.AddDate(-1, 0, 0), to.AddDate(-1, 0, 0))
		require.NoError(t, err)
		assert.Zero(t, sum.OrderCount)
		assert.Empty(t, sum.Daily)
	})

	t.Run("export", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.reports.Export(ctx, &buf, from, to, report.FormatCSV))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 2)
		assert.Contains(t, lines[1], f.now.Format("2006-01-02"))

		err := f.reports.Export(ctx, &buf, from, to, "pdf")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("dashboard", func(t *testing.T) {
		d, err := f.reports.Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), d.OrdersByStatus[models.OrderPaid])
		assert.Equal(t, int64(1), d.OrdersByStatus[models.OrderPending])
		assert.Zero(t, d.PendingPayments)
		assert.Equal(t, 2, d.Orders30Days)
		assertDec(t, "194", d.Revenue30Days)
		require.Len(t, d.TopProducts, 1)
		assert.Equal(t, p.SKU, d.TopProducts[0].SKU)
		assert.Equal(t, int64(2), d.TopProducts[0].Quantity)
	})

	t.Run("vat", func(t *testing.T) {
		rep, err := f.reports.VAT(ctx, f.now.Year())
		require.NoError(t, err)
		require.Len(t, rep.Months, 12)
		month := rep.Months[f.now.Month()-1]
		assert.Equal(t, 2, month.Orders)
		assertDec(t, "180", month.NetSales)
		assertDec(t, "14", month.VAT)
		assertDec(t, "194", month.Gross)
		assertDec(t, "14", rep.VAT)

		_, err = f.reports.VAT(ctx, 1900)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestParseRange(t *testing.T) {
	f := newFixture(t)

	from, to, err := f.reports.ParseRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", from.Format("2006-01-02"))
	assert.Equal(t, "2025-01-31", to.Format("2006-01-02"))

	from, to, err = f.reports.ParseRange("", "")
	require.NoError(t, err)
	assert.Equal(t, 29*24, int(to.Sub(from).Hours()))

	_, _, err = f.reports.ParseRange("2025-02-01", "2025-01-01")
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = f.reports.ParseRange("yesterday", "")
	assert.ErrorIs(t, err, ErrValidation)
}
