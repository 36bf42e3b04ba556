package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/auth"
	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/config"
	"github.com/pawstay/pawstay/services/api/internal/logger"
	"github.com/pawstay/pawstay/services/api/internal/notify"
	"github.com/pawstay/pawstay/services/api/internal/pricing"
	"github.com/pawstay/pawstay/services/api/internal/ratelimit"
	"github.com/pawstay/pawstay/services/api/internal/storage"
	transporthttp "github.com/pawstay/pawstay/services/api/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		logrus.WithError(err).Fatal("build logger")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer stores.Close()

	clk := clock.NewSystem()
	catalog := app.NewCatalogService(stores.Catalog, clk)

	var notifier app.Notifier = notify.NewLogNotifier(log)
	if cfg.MailEnabled() {
		dialer := notify.NewSMTPDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		notifier = notify.NewMailNotifier(dialer, catalog, cfg.MailFrom, log)
		log.WithField("smtp_host", cfg.SMTPHost).Info("mail notifications enabled")
	}

	policy, err := app.PolicyByName(cfg.CancellationPolicy)
	if err != nil {
		log.WithError(err).Fatal("cancellation policy")
	}
	calculator := pricing.NewCalculator(
		pricing.WithTaxBasisPoints(cfg.TaxRateBPS),
		pricing.WithFeeBasisPoints(cfg.PlatformFeeBPS),
	)
	bookings := app.NewBookingService(stores.Bookings, calculator, clk, app.WithBookingNotifier(notifier))
	lifecycle := app.NewLifecycleService(stores.Bookings, clk,
		app.WithRequestTTL(cfg.RequestTTL),
		app.WithCancellationPolicy(policy),
		app.WithLifecycleNotifier(notifier),
	)

	rate, err := ratelimit.ParseRate(cfg.BookingRateLimit)
	if err != nil {
		log.WithError(err).Fatal("BOOKING_RATE_LIMIT")
	}
	limitStore, closeLimitStore, err := ratelimit.NewStore(ctx, cfg.RedisURL, "bookings", rate.Period, log)
	if err != nil {
		log.WithError(err).Fatal("rate limit store")
	}
	defer func() { _ = closeLimitStore() }()

	router := transporthttp.NewRouter(transporthttp.Services{
		Bookings:  bookings,
		Quotes:    bookings,
		Lifecycle: lifecycle,
		Admin:     lifecycle,
		Catalog:   catalog,
	}, transporthttp.RouterOptions{
		Verifier:    auth.NewVerifier(cfg.JWTSecret),
		HealthCheck: stores.Ping,
		BookingLimiter: func(next http.Handler) http.Handler {
			return ratelimit.Middleware(limitStore, rate, next, ratelimit.Options{
				KeyGetter:    transporthttp.RateLimitKey,
				LimitReached: transporthttp.RateLimited,
				OnError: func(w http.ResponseWriter, r *http.Request, err error) {
					log.WithError(err).Warn("rate limit store unavailable, letting request through")
					next.ServeHTTP(w, r)
				},
			})
		},
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, router), log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"storage": cfg.StorageDriver,
	}).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("server stopped")
}
