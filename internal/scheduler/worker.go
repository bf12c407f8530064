package scheduler

import (
	"context"
	"fmt"

	"salesops_backend/internal/config"
	mrrsvc "salesops_backend/internal/mrr/service"
	taskssvc "salesops_backend/internal/tasks/service"
	"salesops_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes the background jobs: the auto-return sweep, the reschedule
// watch, and renewal dispatch. All three are idempotent under at-least-once
// delivery, so asynq retries are safe.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	tasks  *taskssvc.Service
	mrr    *mrrsvc.Service
	log    *logger.Logger
}

func NewWorker(cfg *config.Config, tasks *taskssvc.Service, mrr *mrrsvc.Service, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL, cfg.RedisTLSInsecure)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.AsynqConcurrency
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		tasks:  tasks,
		mrr:    mrr,
		log:    log,
	}

	mux.HandleFunc(TaskAutoReturnSweep, w.handleAutoReturnSweep)
	mux.HandleFunc(TaskRescheduleWatch, w.handleRescheduleWatch)
	mux.HandleFunc(TaskRenewalDispatch, w.handleRenewalDispatch)

	return w, nil
}

func (w *Worker) handleAutoReturnSweep(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseAutoReturnSweepPayload(task); err != nil {
		return err
	}

	returned, err := w.tasks.SweepAutoReturn(ctx)
	if err != nil {
		return err
	}
	if returned > 0 {
		w.log.Info("auto-return sweep reclaimed tasks", "returned", returned)
	}

	return nil
}

func (w *Worker) handleRescheduleWatch(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseRescheduleWatchPayload(task); err != nil {
		return err
	}

	resolved, err := w.tasks.RunRescheduleWatch(ctx)
	if err != nil {
		return err
	}
	if resolved > 0 {
		w.log.Info("reschedule watch resolved tasks", "resolved", resolved)
	}

	return nil
}

func (w *Worker) handleRenewalDispatch(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseRenewalDispatchPayload(task); err != nil {
		return err
	}

	due, err := w.mrr.DispatchDueRenewals(ctx)
	if err != nil {
		return err
	}
	if due > 0 {
		w.log.Info("renewal dispatch published due obligations", "due", due)
	}

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
