package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/pkg/telemetry"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config_error", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_error", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(gdb); err != nil {
		logger.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}
	r := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = &events.LogPublisher{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka_init_error", "error", err)
			os.Exit(1)
		}
		publisher = kp
	}

	var engine search.Engine
	if cfg.ESURL != "" {
		client, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("search_unavailable", "error", err)
		} else {
			engine = &search.Elastic{Client: client, Index: cfg.ESIndex}
		}
	}

	var rateStore ratelimit.Store = ratelimit.NewMemoryStore()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		rateStore = &ratelimit.RedisStore{Client: rdb}
	}

	store := &storage.LocalStore{Dir: cfg.UploadDir}
	shipping := pricing.Shipping{FlatFee: cfg.ShippingFlatFee, FreeMin: cfg.FreeShippingMin}

	authSvc := &service.AuthService{
		Repo:          r,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Events:        publisher,
	}

	e := httpserver.New(&httpserver.Deps{
		Logger:      logger,
		Development: cfg.Development(),

		Auth:  &httpserver.AuthHTTP{Svc: authSvc},
		Users: &httpserver.UserHTTP{Svc: &service.UserService{Repo: r, Events: publisher}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{
			Repo:           r,
			Search:         engine,
			Store:          store,
			Events:         publisher,
			DefaultVATRate: cfg.DefaultVATRate,
			MaxImageBytes:  cfg.UploadMaxBytes,
		}},
		Cart:     &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Shipping: shipping, Events: publisher}},
		Vouchers: &httpserver.VoucherHTTP{Svc: &service.VoucherService{Repo: r, Events: publisher}},
		Orders:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Shipping: shipping, Events: publisher}},
		Payments: &httpserver.PaymentHTTP{Svc: &service.PaymentService{
			Repo:         r,
			Store:        store,
			Events:       publisher,
			MaxSlipBytes: cfg.UploadMaxBytes,
		}},
		Reports: &httpserver.ReportHTTP{Svc: &service.ReportService{Repo: r}},

		Authenticator: &authmw.Authenticator{JWTSecret: cfg.JWTAccessSecret, Refresher: authSvc},

		RateStore:     rateStore,
		RateLimit:     cfg.RateLimitRequests,
		AuthRateLimit: cfg.AuthRateLimitRequests,
		RateWindow:    cfg.RateLimitWindow,

		ProductImages: filepath.Join(cfg.UploadDir, "products"),

		Ready: func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.TracingEnabled)
	if err != nil {
		logger.Error("tracing_init_error", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           telemetry.Handler(e, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")
	shutdown(logger, srv, gdb, publisher, rdb, shutdownTracing)
	logger.Info("shutdown_complete")
}

func shutdown(l *slog.Logger, srv *http.Server, gdb *gorm.DB, p events.Publisher, rdb *redis.Client, tracing func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			l.Error("db_close_error", "error", err)
		}
	}

	if err := p.Close(); err != nil {
		l.Error("publisher_close_error", "error", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			l.Error("redis_close_error", "error", err)
		}
	}

	if err := tracing(ctx); err != nil {
		l.Error("tracing_shutdown_error", "error", err)
	}
}
