package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/checkin"
	"github.com/farellandr/ticketgate/internal/handlers"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/idempotency"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/payment"
	"github.com/farellandr/ticketgate/internal/repository"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/gorm"
)

type Options struct {
	// Port overrides the PORT environment variable when set.
	Port string
}

// app holds the process-wide dependencies. They are initialized once; the
// first failure is kept in initErr and every route reports it.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	initErr error

	db      *gorm.DB
	xendit  *xendit.APIClient
	redis   *redis.Client
	catalog config.Catalog
	mailer  *mailer.Mailer
	auth    *services.AdminAuth
	loc     *time.Location
}

func Start(ctx context.Context, opts Options) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	a := newApp(ctx, cfg, logger)
	defer a.close()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.router(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) *app {
	a := &app{cfg: cfg, logger: logger, catalog: config.DefaultCatalog()}
	if err := a.init(ctx); err != nil {
		a.initErr = err
		logger.Error("server is misconfigured, requests will be rejected", "error", err)
	}
	return a
}

func (a *app) init(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	loc, err := a.cfg.DisplayLocation()
	if err != nil {
		return err
	}
	a.loc = loc

	db, err := config.InitDatabase(a.cfg)
	if err != nil {
		return helpers.WrapError(helpers.KindMisconfigured, "The database could not be initialized.", err)
	}
	a.db = db

	client, err := config.InitXenditClient(a.cfg)
	if err != nil {
		return err
	}
	a.xendit = client

	catalog, err := config.LoadCatalog(a.cfg.CatalogFile)
	if err != nil {
		return helpers.WrapError(helpers.KindMisconfigured, "The ticket catalog could not be loaded.", err)
	}
	a.catalog = catalog

	auth, err := services.NewAdminAuth(a.cfg.AdminPassword, a.cfg.JWTSecret, a.cfg.TokenTTL)
	if err != nil {
		return err
	}
	a.auth = auth

	a.mailer = mailer.New(a.cfg.Mailer())

	// Delivery dedupe is optional; without redis every delivery is processed.
	rdb, err := config.InitRedis(ctx, a.cfg)
	if err != nil {
		a.logger.Warn("redis unavailable, webhook deduplication disabled", "error", err)
	}
	a.redis = rdb

	return nil
}

func (a *app) router() *gin.Engine {
	store := repository.New(a.db)
	gateway := payment.NewGateway(a.xendit)
	baseURL := a.cfg.PublicBaseURL

	checkout := services.NewCheckoutService(store, gateway, a.catalog, baseURL, a.logger)
	fulfillment := services.NewFulfillmentService(store, a.mailer, a.catalog, baseURL, a.logger)
	webhooks := services.NewWebhookService(gateway, fulfillment, idempotency.New(a.redis), a.logger)
	inscriptions := services.NewInscriptionService(store)

	var checkinOpts []checkin.Option
	if a.loc != nil {
		checkinOpts = append(checkinOpts, checkin.WithDisplayLocation(a.loc))
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	setupRoutes(r, routes{
		initErr:       a.initErr,
		callbackToken: a.cfg.XenditCallbackToken,
		verifier:      a.auth,
		logger:        a.logger,
		payments:      handlers.NewPaymentHandler(checkout, webhooks, a.logger),
		tickets:       handlers.NewTicketHandler(inscriptions),
		coupons:       handlers.NewCouponHandler(checkout),
		checkins:      handlers.NewCheckinHandler(checkin.NewService(store, a.logger, checkinOpts...), inscriptions),
		auth:          handlers.NewAuthHandler(a.auth),
		admin:         handlers.NewAdminHandler(inscriptions, fulfillment),
	})
	return r
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
