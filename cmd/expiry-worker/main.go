package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/standby-scheduling/internal/config"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/events"
	redisclient "github.com/hackgods/standby-scheduling/internal/redis"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

const (
	workerLockName     = "worker:expiry"
	confirmationMaxAge = 24 * time.Hour
)

type worker struct {
	slots    *scheduling.Service
	redeemer *standby.Redeemer
	locker   redisclient.Locker
	logger   *logging.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "expiry-worker", "env", cfg.Env)
	logger.Info("expiry-worker starting up", "interval", cfg.WorkerInterval.String())

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

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	recorder := events.NewRecorder(pgPool, logger)
	slots := scheduling.NewService(scheduling.NewPgRepository(pgPool), nil, locker, recorder, logger)

	w := &worker{
		slots:    slots,
		redeemer: standby.NewRedeemer(standby.NewPgRepository(pgPool), slots, recorder, nil, logger),
		locker:   locker,
		logger:   logger,
	}

	w.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			w.runOnce(rootCtx)
		}
	}
}

// runOnce is skipped when another replica holds the worker lock.
func (w *worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	err := w.locker.WithNamedLock(runCtx, workerLockName, func(ctx context.Context) error {
		expired, err := w.slots.ExpireOpenSlots(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		purged, err := w.redeemer.PurgeExpiredConfirmations(ctx, confirmationMaxAge)
		if err != nil {
			return err
		}
		w.logger.Info("expiry run complete",
			"expired_slots", expired,
			"purged_confirmations", purged,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		w.logger.Debug("expiry run skipped, another worker holds the lock")
	default:
		w.logger.Error("expiry run error", "error", err)
	}
}
