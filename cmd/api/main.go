package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesops_backend/internal/activity"
	"salesops_backend/internal/adapters"
	"salesops_backend/internal/auth"
	calclient "salesops_backend/internal/calendar/client"
	"salesops_backend/internal/config"
	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/http/router"
	"salesops_backend/internal/mrr"
	mrrrepo "salesops_backend/internal/mrr/repository"
	"salesops_backend/internal/notification"
	"salesops_backend/internal/pipeline"
	pipelinerepo "salesops_backend/internal/pipeline/repository"
	"salesops_backend/internal/tasks"
	"salesops_backend/internal/teams"
	"salesops_backend/internal/undo"
	"salesops_backend/platform/db"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	sender := email.NewSender(cfg)
	ledger := undo.NewLedger(rdb, cfg.UndoGraceWindow)
	calendar := calclient.New(cfg.CalendarBaseURL, log)

	// Composition root. Cross-module calls go through ports so each module
	// only sees the interfaces it declared.
	activityModule := activity.NewModule(pool)
	recorder := adapters.NewActivityRecorder(activityModule.Service())

	teamsModule := teams.NewModule(pool, val, log)
	appointmentStore := adapters.NewAppointmentStore(pipelinerepo.New(pool))

	tasksModule := tasks.NewModule(pool, teamsModule.Service(), appointmentStore, recorder, eventBus, val, log)
	mrrModule := mrr.NewModule(pool, teamsModule.Service(), appointmentStore, recorder, eventBus, val, log)

	pipelineModule := pipeline.NewModule(pool, pipeline.Deps{
		Teams:         teamsModule.Service(),
		Tasks:         tasksModule.Service(),
		Schedules:     mrrModule.Service(),
		Calendar:      calendar,
		Activity:      recorder,
		Ledger:        ledger,
		CalendarToken: cfg.CalendarToken,
	}, eventBus, val, log)

	authModule := auth.NewModule(pool, cfg, val, log)

	readers := adapters.NewNotificationReaders(authModule.Repository(), pipelinerepo.New(pool), mrrrepo.New(pool))
	notificationModule := notification.New(sender, readers, readers, readers, log)
	notificationModule.RegisterHandlers(eventBus)

	engine := router.New(cfg, log, pool, []apphttp.Module{
		authModule,
		teamsModule,
		pipelineModule,
		tasksModule,
		mrrModule,
		activityModule,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.RedisTLSInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return redis.NewClient(opt), nil
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
