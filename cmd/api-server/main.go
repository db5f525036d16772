package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/api"
	"github.com/hackgods/standby-scheduling/internal/config"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/events"
	"github.com/hackgods/standby-scheduling/internal/notify"
	"github.com/hackgods/standby-scheduling/internal/observability/metrics"
	redisclient "github.com/hackgods/standby-scheduling/internal/redis"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "api-server", "env", cfg.Env)
	logger.Info("api-server starting up", "http_port", cfg.HTTPPort, "email_provider", cfg.EmailProvider)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}()

	sender, err := notify.NewEmailSender(rootCtx, notify.ProviderConfig{
		Provider:       cfg.EmailProvider,
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      cfg.EmailSender,
		FromName:       cfg.EmailSenderName,
		AWSRegion:      cfg.AWSRegion,
	}, logger)
	if err != nil {
		log.Fatalf("email sender error: %v", err)
	}

	standbyMetrics := metrics.NewStandbyMetrics(prometheus.DefaultRegisterer)
	recorder := events.NewRecorder(pgPool, logger)
	accounts := account.NewPgRepository(pgPool)
	standbyRepo := standby.NewPgRepository(pgPool)

	slots := scheduling.NewService(
		scheduling.NewPgRepository(pgPool),
		accounts,
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		recorder,
		logger,
	)

	matcher := standby.NewMatcher(standby.MatcherDeps{
		Preferences: standbyRepo,
		Patients:    accounts,
		Issuer:      standby.NewIssuer(standbyRepo, cfg.ConfirmationTTL),
		Notifier:    notify.NewEmailNotifier(sender),
		Counter:     redisclient.NewNotificationCounter(rdb),
		Events:      recorder,
		Metrics:     standbyMetrics,
		Logger:      logger.With("component", "standby-matcher"),
	}, standby.Options{
		EnforcePreferredDays: cfg.EnforcePreferredDays,
		EnforceDailyCap:      cfg.EnforceDailyCap,
		FrontendURL:          cfg.FrontendURL,
	})
	slots.OnSlotOpened(matcher.OnSlotOpened)

	router := api.NewRouter(api.RouterConfig{
		Slots:       slots,
		Preferences: standby.NewPreferenceService(standbyRepo, accounts, logger),
		Redeemer:    standby.NewRedeemer(standbyRepo, slots, recorder, standbyMetrics, logger),
		Health:      api.NewHealthHandler(pgPool, rdb, cfg.Env, version),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
