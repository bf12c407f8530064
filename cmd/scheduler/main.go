package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/activity"
	"salesops_backend/internal/adapters"
	authrepo "salesops_backend/internal/auth/repository"
	"salesops_backend/internal/config"
	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	"salesops_backend/internal/mrr"
	mrrrepo "salesops_backend/internal/mrr/repository"
	"salesops_backend/internal/notification"
	pipelinerepo "salesops_backend/internal/pipeline/repository"
	"salesops_backend/internal/scheduler"
	"salesops_backend/internal/tasks"
	"salesops_backend/internal/teams"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	sender := email.NewSender(cfg)

	// The sweeps publish the same events as the HTTP path, so the mail
	// subscribers are wired here too.
	activityModule := activity.NewModule(pool)
	recorder := adapters.NewActivityRecorder(activityModule.Service())
	teamsModule := teams.NewModule(pool, val, log)
	appointmentStore := adapters.NewAppointmentStore(pipelinerepo.New(pool))

	tasksModule := tasks.NewModule(pool, teamsModule.Service(), appointmentStore, recorder, eventBus, val, log)
	mrrModule := mrr.NewModule(pool, teamsModule.Service(), appointmentStore, recorder, eventBus, val, log)

	users := authrepo.New(pool)
	readers := adapters.NewNotificationReaders(users, pipelinerepo.New(pool), mrrrepo.New(pool))
	notificationModule := notification.New(sender, readers, readers, readers, log)
	notificationModule.RegisterHandlers(eventBus)

	dispatchClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = dispatchClient.Close() }()

	dispatcher := scheduler.NewPeriodicDispatcher(dispatchClient, log, cfg.SweepInterval, cfg.WatchPollInterval)
	go dispatcher.Run(ctx)

	tokenCleanup := scheduler.NewTokenCleanup(users, log, 0)
	go tokenCleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, tasksModule.Service(), mrrModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
