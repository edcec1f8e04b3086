package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/models"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
)

type Deps struct {
	Logger      *slog.Logger
	Development bool

	Auth     *AuthHTTP
	Users    *UserHTTP
	Catalog  *CatalogHTTP
	Cart     *CartHTTP
	Vouchers *VoucherHTTP
	Orders   *OrderHTTP
	Payments *PaymentHTTP
	Reports  *ReportHTTP

	Authenticator *authmw.Authenticator

	RateStore     ratelimit.Store
	RateLimit     int
	AuthRateLimit int
	RateWindow    time.Duration

	// ProductImages is the directory served under /uploads/products.
	ProductImages string

	Ready func(ctx context.Context) error
}

// New builds the echo instance with the middleware stack and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler(d.Development)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, authmw.HeaderSessionID, csrf.HeaderName},
		AllowCredentials: true,
	}))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	if d.ProductImages != "" {
		e.Static("/uploads/products", d.ProductImages)
	}

	authn := d.Authenticator
	staff := authn.RequireRole(models.RoleStaff, models.RoleAdmin)
	admin := authn.RequireRole(models.RoleAdmin)

	api := e.Group("/api")
	if d.RateStore != nil {
		api.Use(ratelimit.Middleware(d.RateStore, d.RateLimit, d.RateWindow, "api"))
	}
	api.Use(csrf.Middleware(!d.Development), authn.Identify)

	auth := api.Group("/auth")
	if d.RateStore != nil {
		auth.Use(ratelimit.Middleware(d.RateStore, d.AuthRateLimit, d.RateWindow, "auth"))
	}
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)

	users := api.Group("/users", authn.RequireAuth)
	users.GET("/me", d.Users.Me)
	users.PATCH("/me", d.Users.UpdateMe)
	users.GET("", d.Users.List, admin)
	users.PATCH("/:id/role", d.Users.SetRole, admin)

	categories := api.Group("/categories")
	categories.GET("", d.Catalog.ListCategories)
	categories.GET("/:id", d.Catalog.GetCategory)
	categories.POST("", d.Catalog.CreateCategory, staff)
	categories.PATCH("/:id", d.Catalog.PatchCategory, staff)
	categories.DELETE("/:id", d.Catalog.DeleteCategory, staff)

	products := api.Group("/products")
	products.GET("", d.Catalog.ListProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/low-stock", d.Catalog.LowStock, staff)
	products.GET("/:id", d.Catalog.GetProduct)
	products.POST("", d.Catalog.CreateProduct, staff)
	products.PATCH("/:id", d.Catalog.PatchProduct, staff)
	products.DELETE("/:id", d.Catalog.DeleteProduct, staff)
	products.POST("/:id/stock", d.Catalog.AdjustStock, staff)
	products.POST("/:id/image", d.Catalog.UploadImage, staff)

	cart := api.Group("/cart")
	cart.GET("", d.Cart.Get)
	cart.DELETE("", d.Cart.Clear)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:id", d.Cart.UpdateItem)
	cart.DELETE("/items/:id", d.Cart.RemoveItem)
	cart.POST("/voucher", d.Cart.ApplyVoucher)
	cart.DELETE("/voucher", d.Cart.RemoveVoucher)
	cart.POST("/merge", d.Cart.Merge, authn.RequireAuth)

	vouchers := api.Group("/vouchers")
	vouchers.POST("/validate", d.Vouchers.Validate)
	vouchers.GET("", d.Vouchers.List, staff)
	vouchers.GET("/:id", d.Vouchers.Get, staff)
	vouchers.POST("", d.Vouchers.Create, staff)
	vouchers.PATCH("/:id", d.Vouchers.Patch, staff)
	vouchers.DELETE("/:id", d.Vouchers.Delete, staff)

	orders := api.Group("/orders")
	orders.POST("", d.Orders.Checkout)
	orders.GET("", d.Orders.ListMine, authn.RequireAuth)
	orders.GET("/all", d.Orders.List, staff)
	orders.GET("/:number", d.Orders.Get)
	orders.POST("/:number/cancel", d.Orders.Cancel)
	orders.PATCH("/:number/status", d.Orders.UpdateStatus, staff)
	orders.POST("/:number/payments", d.Payments.UploadSlip)
	orders.GET("/:number/payments", d.Payments.ListForOrder)

	payments := api.Group("/payments", staff)
	payments.GET("/pending", d.Payments.ListPending)
	payments.GET("/:id", d.Payments.Get)
	payments.GET("/:id/slip", d.Payments.Slip)
	payments.POST("/:id/verify", d.Payments.Verify)
	payments.POST("/:id/reject", d.Payments.Reject)

	financial := api.Group("/financial", staff)
	financial.GET("/summary", d.Reports.Summary)
	financial.GET("/export", d.Reports.Export)

	api.GET("/analytics/dashboard", d.Reports.Dashboard, staff)
	api.GET("/accounting/vat", d.Reports.VAT, staff)
}
