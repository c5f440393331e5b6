package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rajeshtiwari2503/spareflow-sub004/internal/booking"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/carrier"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/config"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/ledger"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/margin"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/middleware"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/notification"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/pricing"
	"github.com/rajeshtiwari2503/spareflow-sub004/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Operational endpoints
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Storage backends: Postgres in deployed environments, in-memory in dev.
	var ledgerBackend ledger.Ledger
	var walletRepo wallet.Repository
	var ruleStore pricing.RuleStore
	var marginStore margin.Store
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		ruleStore = pricing.NewPostgresRuleStore(d.DB)
		marginStore = margin.NewPostgresStore(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		ruleStore = pricing.NewMemoryRuleStore()
		marginStore = margin.NewMemoryStore()
	}

	// Services
	resolver := pricing.NewResolver(ruleStore, d.Cfg.DefaultBaseRatePaise, d.Logger)
	walletSvc := wallet.NewService(walletRepo, ledgerBackend)
	notifier := notification.NewLoggerNotifier(d.Logger)
	marginRecorder := margin.NewRecorder(marginStore, d.Logger)

	carrierClient := carrier.NewHTTPClient(d.Cfg.CarrierBaseURL, d.Cfg.CarrierAPIKey)
	gateway := carrier.NewGateway(carrierClient, carrier.RetryPolicy{
		MaxAttempts: d.Cfg.CarrierAttempts,
		Delay:       d.Cfg.CarrierRetryDelay,
		Timeout:     d.Cfg.CarrierTimeout,
	}, d.Logger)

	bookingSvc := booking.NewService(resolver, ledgerBackend, gateway, walletSvc,
		marginRecorder, notifier, booking.Origin{
			Name:    d.Cfg.OriginName,
			Address: d.Cfg.OriginAddress,
			Pincode: d.Cfg.OriginPincode,
		}, d.Cfg.BatchCallDelay, d.Logger)

	// Handlers
	walletHandler := wallet.NewHandler(walletSvc)
	pricingHandler := pricing.NewHandler(resolver, ruleStore)
	bookingHandler := booking.NewHandler(bookingSvc, gateway)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, walletHandler)
	RegisterPricingRoutes(api, pricingHandler)

	rateLimiter := middleware.BookingRateLimit(d.Cache, 30)
	RegisterBookingRoutes(api, bookingHandler, rateLimiter)

	return nil
}
