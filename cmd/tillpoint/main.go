package main

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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/tillpoint/internal/adapter/auth"
	"github.com/neomorfeo/tillpoint/internal/adapter/fsm"
	"github.com/neomorfeo/tillpoint/internal/adapter/gateway/razorpay"
	"github.com/neomorfeo/tillpoint/internal/adapter/gateway/stripe"
	"github.com/neomorfeo/tillpoint/internal/adapter/mail"
	"github.com/neomorfeo/tillpoint/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/tillpoint/internal/adapter/river"
	"github.com/neomorfeo/tillpoint/internal/adapter/sqlite"
	"github.com/neomorfeo/tillpoint/internal/app"
	"github.com/neomorfeo/tillpoint/internal/config"
	"github.com/neomorfeo/tillpoint/internal/domain"
	"github.com/neomorfeo/tillpoint/internal/logging"

	handler "github.com/neomorfeo/tillpoint/internal/adapter/http"
)

const (
	serviceName = "tillpoint"
	version     = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// --- Telemetry ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database %s: %w", cfg.DatabasePath, err)
	}
	defer store.Close()

	a, err := build(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	if err := a.jobs.Start(ctx); err != nil {
		return fmt.Errorf("starting jobs: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.jobs.Stop(stopCtx); err != nil {
			logger.Warn("stopping jobs", "error", err)
		}
	}()

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

type application struct {
	router http.Handler
	jobs   *riveradapter.Client
}

// build assembles services, background jobs and the HTTP router on store.
func build(ctx context.Context, cfg *config.Config, store *sqlite.Store, logger *slog.Logger) (*application, error) {
	tokens, err := auth.NewTokens(cfg.JWTSecret, serviceName, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	hasher := auth.Bcrypt{}

	// Services publish through River, but River's workers call the services,
	// so the queue client is attached once both exist.
	queue := riveradapter.NewPublisher()
	publisher := otel.NewTracingPublisher(queue)

	gateways := domain.Gateways{}
	var razorpayCallback handler.CallbackVerifier
	if cfg.Razorpay.Enabled() {
		rzp := razorpay.New(razorpay.Config{
			KeyID:       cfg.Razorpay.KeyID,
			KeySecret:   cfg.Razorpay.KeySecret,
			BaseURL:     cfg.Razorpay.BaseURL,
			CallbackURL: cfg.Razorpay.CallbackURL,
		}, &http.Client{Timeout: cfg.GatewayTimeout})
		gateways[domain.MethodRazorpay] = rzp
		razorpayCallback = rzp
	}
	if cfg.Stripe.Enabled() {
		gateways[domain.MethodStripe] = stripe.New(stripe.Config{
			SecretKey:  cfg.Stripe.SecretKey,
			BaseURL:    cfg.Stripe.BaseURL,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
			HTTPClient: &http.Client{Timeout: cfg.GatewayTimeout},
		})
	}
	if len(gateways) == 0 {
		logger.Warn("no payment gateway configured; payment links are disabled")
	}

	// --- Application ---
	accounts := app.NewAccountService(store.Principals(), hasher, tokens)
	subscriptions := app.NewSubscriptionService(store, fsm.NewSubscriptionValidator(), publisher, logger)
	svcs := handler.Services{
		Accounts:         accounts,
		Stores:           app.NewStoreService(store, fsm.NewModerationValidator(), hasher, publisher, logger),
		Entitlements:     app.NewEntitlementService(store),
		Plans:            app.NewPlanService(store),
		Subscriptions:    subscriptions,
		Payments:         app.NewPaymentService(store, otel.TraceGateways(gateways), subscriptions, publisher, logger, cfg.GatewayTimeout),
		RazorpayCallback: razorpayCallback,
	}

	if cfg.PlatformAdminEmail != "" {
		created, err := accounts.EnsurePlatformAdmin(ctx, cfg.PlatformAdminEmail, cfg.PlatformAdminPassword)
		if err != nil {
			return nil, fmt.Errorf("platform operator: %w", err)
		}
		if created {
			logger.Info("platform operator created", "email", cfg.PlatformAdminEmail)
		}
	}

	// --- Background jobs ---
	opts := riveradapter.Options{
		Sweeper:       subscriptions,
		Logger:        logger,
		SweepInterval: cfg.SweepInterval,
		ReminderDays:  cfg.ReminderDays,
	}
	if cfg.SMTP.Enabled() {
		notifier := otel.NewTracingNotifier(mail.New(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
		opts.Reminder = app.NewReminderService(store, notifier, logger)
	} else {
		logger.Warn("SMTP not configured; renewal reminders are disabled")
	}

	jobs, err := riveradapter.Setup(ctx, store.DB(), opts)
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	queue.Attach(jobs)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Requests(logger))
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(handler.Authenticate(accounts))

	router.Handle("/metrics", promhttp.Handler())

	api := humachi.New(router, huma.DefaultConfig(serviceName, version))
	handler.Register(api, svcs)

	return &application{router: router, jobs: jobs}, nil
}
