package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paywave/paywave/internal/auth"
	"github.com/paywave/paywave/internal/config"
	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/notification"
	"github.com/paywave/paywave/internal/otp"
	"github.com/paywave/paywave/internal/payments"
	"github.com/paywave/paywave/internal/payout"
	"github.com/paywave/paywave/internal/refcache"
	"github.com/paywave/paywave/internal/settlement"
	"github.com/paywave/paywave/internal/wallet"
	"github.com/paywave/paywave/internal/webhook"
)

// tokenTTL only bounds tokens minted locally for dev and tests; production
// tokens are issued by the auth service.
const tokenTTL = time.Hour

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Dispatcher
	Logger   *slog.Logger
}

// stores picks Postgres-backed persistence when a pool is configured and the
// in-memory set otherwise. Only the in-memory set needs the sweeper.
type stores struct {
	users   identity.Repository
	wallets wallet.Repository
	ledger  ledger.Store
	applier settlement.Applier
	sweeper *settlement.Coordinator
}

func newStores(d Deps) stores {
	if d.DB != nil {
		return stores{
			users:   identity.NewPostgresRepository(d.DB),
			wallets: wallet.NewPostgresRepository(d.DB),
			ledger:  ledger.NewPostgresStore(d.DB),
			applier: settlement.NewPostgresApplier(d.DB),
		}
	}
	s := stores{
		users:   identity.NewMemoryRepository(),
		wallets: wallet.NewMemoryRepository(),
		ledger:  ledger.NewMemoryStore(),
	}
	s.sweeper = settlement.NewCoordinator(s.wallets, s.ledger, settlement.NewMemoryJournal(), d.Logger)
	s.applier = s.sweeper
	return s
}

// Setup configures middlewares and all application routes. The returned
// Background owns the webhook pool and settlement sweeper.
func Setup(app *fiber.App, d Deps) (*Background, error) {
	if !d.Cfg.IsDev() && d.DB == nil {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Cache == nil {
		return nil, fmt.Errorf("redis is required")
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerDispatcher(d.Logger)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	st := newStores(d)
	processor := flutterwave.NewClient(d.Cfg.Flutterwave.BaseURL, d.Cfg.Flutterwave.SecretKey, d.Cfg.Flutterwave.Timeout, d.Logger)
	var rail payout.Rail = processor
	if d.Cfg.Flutterwave.SecretKey == "" && d.Cfg.IsDev() {
		d.Logger.Warn("FLW_SECRET_KEY not set, outbound transfers use the static rail")
		rail = &payout.StaticRail{}
	}
	refs := refcache.New(d.Cache)
	codes := otp.NewStore(d.Cache)

	identitySvc := identity.NewService(st.users)
	walletSvc := wallet.NewService(st.wallets, identitySvc, processor, d.Logger)
	ledgerSvc := ledger.NewService(st.ledger, st.wallets)
	payoutSvc := payout.NewService(identitySvc, st.wallets, codes, refs, rail, d.Logger)
	paymentSvc := payments.NewService(identitySvc, st.wallets, st.applier, d.Notifier, d.Logger)
	otpSvc := otp.NewService(codes, identitySvc, d.Notifier, d.Logger)

	engine := webhook.NewEngine(processor, identitySvc, st.wallets, refs, st.applier, d.Notifier, d.Logger)
	pool := webhook.NewPool(d.Cfg.Webhook.Queue, engine, d.Logger)

	// Processor callbacks sit outside auth and idempotency.
	RegisterWebhookRoutes(app, webhook.NewHandler(d.Cfg.Flutterwave.SecretHash, pool, d.Logger))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	signer := auth.NewSigner(d.Cfg.JWTSecret, tokenTTL)
	protected := api.Group("",
		middleware.JWTAuth(signer, identitySvc),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)
	moneyLimit := middleware.RateLimit(d.Cache, "money", 10, time.Minute, d.Logger)
	otpLimit := middleware.RateLimit(d.Cache, "otp", 3, 10*time.Minute, d.Logger)

	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc))
	RegisterPayoutRoutes(protected, payout.NewHandler(payoutSvc), moneyLimit)
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc), moneyLimit)
	RegisterAccountRoutes(protected, otp.NewHandler(otpSvc), otpLimit)
	RegisterTransactionRoutes(protected, ledger.NewHandler(ledgerSvc))

	return &Background{
		pool:     pool,
		workers:  d.Cfg.Webhook.Workers,
		sweeper:  st.sweeper,
		interval: d.Cfg.SweepInterval,
	}, nil
}

// Background runs the work that outlives a single request.
type Background struct {
	pool     *webhook.Pool
	workers  int
	sweeper  *settlement.Coordinator
	interval time.Duration
	cancel   context.CancelFunc
}

// Start launches webhook workers and, for in-memory stores, the sweeper.
func (b *Background) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.pool.Start(b.workers)
	if b.sweeper != nil && b.interval > 0 {
		go b.sweeper.RunSweeper(ctx, b.interval)
	}
}

// Shutdown stops the sweeper and drains queued webhook events. Call it after
// the HTTP server has stopped accepting requests.
func (b *Background) Shutdown(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	return b.pool.Shutdown(ctx)
}
