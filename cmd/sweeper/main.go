// Command sweeper expires booking requests the host never answered. It runs
// one sweep and exits; schedule it from cron or a job runner.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/clock"
	"github.com/pawstay/pawstay/services/api/internal/config"
	"github.com/pawstay/pawstay/services/api/internal/logger"
	"github.com/pawstay/pawstay/services/api/internal/notify"
	"github.com/pawstay/pawstay/services/api/internal/storage"
)

const sweepTimeout = time.Minute

func main() {
	cfg, err := config.Load(logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		logrus.WithError(err).Fatal("build logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer stores.Close()

	clk := clock.NewSystem()
	var notifier app.Notifier = notify.NewLogNotifier(log)
	if cfg.MailEnabled() {
		dialer := notify.NewSMTPDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		notifier = notify.NewMailNotifier(dialer, app.NewCatalogService(stores.Catalog, clk), cfg.MailFrom, log)
	}

	lifecycle := app.NewLifecycleService(stores.Bookings, clk,
		app.WithRequestTTL(cfg.RequestTTL),
		app.WithLifecycleNotifier(notifier),
	)

	start := time.Now()
	n, err := lifecycle.ExpireStale(ctx)
	if err != nil {
		log.WithError(err).Fatal("expire stale requests")
	}
	log.WithFields(logrus.Fields{
		"expired":     n,
		"request_ttl": cfg.RequestTTL.String(),
		"duration":    time.Since(start).String(),
	}).Info("sweep finished")
}
