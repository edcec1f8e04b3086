package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/dbtest"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/transport"
)

var pngSlip = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR slip")

type fixture struct {
	repo  *repo.GormRepo
	now   time.Time
	store *storage.LocalStore

	auth     *AuthService
	users    *UserService
	catalog  *CatalogService
	vouchers *VoucherService
	carts    *CartService
	orders   *OrderService
	payments *PaymentService
	reports  *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := dbtest.Repo(t)
	now := time.Now().UTC().Truncate(time.Second)
	clock := Clock(func() time.Time { return now })
	store := &storage.LocalStore{Dir: t.TempDir()}

	return &fixture{
		repo:  r,
		now:   now,
		store: store,
		auth: &AuthService{
			Repo:          r,
			JWTSecret:     []byte("access-secret"),
			RefreshSecret: []byte("refresh-secret"),
			Now:           clock,
		},
		users: &UserService{Repo: r},
		catalog: &CatalogService{
			Repo:           r,
			Store:          store,
			DefaultVATRate: dec("0.07"),
			MaxImageBytes:  1 << 20,
		},
		vouchers: &VoucherService{Repo: r, Now: clock},
		carts:    &CartService{Repo: r, Now: clock},
		orders:   &OrderService{Repo: r, Now: clock},
		payments: &PaymentService{Repo: r, Store: store, MaxSlipBytes: 1 << 20, Now: clock},
		reports:  &ReportService{Repo: r, Now: clock},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func codeOf(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func (f *fixture) category(t *testing.T, code string) *models.Category {
	t.Helper()
	ctx := context.Background()

	if c, err := f.repo.GetCategoryByCode(ctx, code); err == nil {
		return c
	}
	c, err := f.catalog.CreateCategory(ctx, transport.CategoryRequest{Code: code, Name: code})
	require.NoError(t, err)
	return c
}

// product creates an active product at price (excluding 7% VAT).
func (f *fixture) product(t *testing.T, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), transport.CreateProductRequest{
		Name:              "Widget " + uuid.NewString()[:4],
		CategoryID:        f.category(t, "ELEC").ID,
		PriceExcludingVAT: dec(price),
		StockQuantity:     stock,
		LowStockThreshold: 1,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) user(t *testing.T, role string) (*models.User, Actor) {
	t.Helper()
	ctx := context.Background()

	u, err := f.auth.Register(ctx, transport.RegisterRequest{
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "correct-horse",
		Name:     "Test User",
		Phone:    "0800000000",
	})
	require.NoError(t, err)
	if role != models.RoleCustomer {
		u, err = f.users.SetRole(ctx, u.ID, role)
		require.NoError(t, err)
	}
	return u, Actor{UserID: &u.ID, Role: u.Role}
}

func guest() Actor {
	return Actor{SessionID: "guest-" + uuid.NewString()}
}

func (f *fixture) voucher(t *testing.T, req transport.VoucherRequest) *models.Voucher {
	t.Helper()
	if req.Code == "" {
		req.Code = "V" + uuid.NewString()[:6]
	}
	if req.DiscountType == "" {
		req.DiscountType = pricing.Percentage
	}
	v, err := f.vouchers.Create(context.Background(), req)
	require.NoError(t, err)
	return v
}

func address() models.Address {
	return models.Address{
		Recipient:  "Somchai",
		Line1:      "1 Main Road",
		City:       "Bangkok",
		PostalCode: "10110",
		Country:    "TH",
		Phone:      "0812345678",
	}
}

func checkoutReq(a Actor) transport.CheckoutRequest {
	req := transport.CheckoutRequest{ShippingAddress: address()}
	if a.UserID == nil {
		req.GuestName = "Guest Buyer"
		req.GuestEmail = "guest@example.com"
		req.GuestPhone = "0899999999"
	}
	return req
}

// placeOrder puts qty of p in a's cart and checks out.
func (f *fixture) placeOrder(t *testing.T, a Actor, p *models.Product, qty int) *models.Order {
	t.Helper()
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, a, transport.AddItemRequest{ProductID: p.ID, Quantity: qty})
	require.NoError(t, err)
	o, err := f.orders.Checkout(ctx, a, checkoutReq(a))
	require.NoError(t, err)
	return o
}

func (f *fixture) uploadSlip(t *testing.T, a Actor, o *models.Order) *models.Payment {
	t.Helper()
	p, err := f.payments.UploadSlip(context.Background(), a, o.OrderNumber, SlipUpload{File: bytes.NewReader(pngSlip)})
	require.NoError(t, err)
	return p
}
