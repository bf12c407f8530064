package scheduler

import (
	"context"
	"time"

	"salesops_backend/platform/logger"
)

const (
	defaultSweepInterval   = time.Minute
	defaultWatchInterval   = 30 * time.Second
	defaultRenewalInterval = time.Hour
)

// PeriodicDispatcher enqueues the recurring background jobs on their
// intervals. The jobs themselves are idempotent, so a dispatch lost or
// duplicated across restarts is harmless.
type PeriodicDispatcher struct {
	client          *Client
	log             *logger.Logger
	sweepInterval   time.Duration
	watchInterval   time.Duration
	renewalInterval time.Duration
}

func NewPeriodicDispatcher(client *Client, log *logger.Logger, sweepInterval, watchInterval time.Duration) *PeriodicDispatcher {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	if watchInterval <= 0 {
		watchInterval = defaultWatchInterval
	}

	return &PeriodicDispatcher{
		client:          client,
		log:             log,
		sweepInterval:   sweepInterval,
		watchInterval:   watchInterval,
		renewalInterval: defaultRenewalInterval,
	}
}

func (d *PeriodicDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	sweep := time.NewTicker(d.sweepInterval)
	watch := time.NewTicker(d.watchInterval)
	renewal := time.NewTicker(d.renewalInterval)
	defer sweep.Stop()
	defer watch.Stop()
	defer renewal.Stop()

	d.dispatchRenewal(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			d.dispatchSweep(ctx)
		case <-watch.C:
			d.dispatchWatch(ctx)
		case <-renewal.C:
			d.dispatchRenewal(ctx)
		}
	}
}

func (d *PeriodicDispatcher) dispatchSweep(ctx context.Context) {
	err := d.client.EnqueueAutoReturnSweep(ctx, AutoReturnSweepPayload{RequestedAt: time.Now()})
	if err != nil {
		d.log.Warn("failed to enqueue auto-return sweep", "error", err)
	}
}

func (d *PeriodicDispatcher) dispatchWatch(ctx context.Context) {
	err := d.client.EnqueueRescheduleWatch(ctx, RescheduleWatchPayload{RequestedAt: time.Now()})
	if err != nil {
		d.log.Warn("failed to enqueue reschedule watch", "error", err)
	}
}

func (d *PeriodicDispatcher) dispatchRenewal(ctx context.Context) {
	err := d.client.EnqueueRenewalDispatch(ctx, RenewalDispatchPayload{RequestedAt: time.Now()})
	if err != nil {
		d.log.Warn("failed to enqueue renewal dispatch", "error", err)
	}
}
