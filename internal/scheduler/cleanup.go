package scheduler

import (
	"context"
	"time"

	authrepo "salesops_backend/internal/auth/repository"
	"salesops_backend/platform/logger"
)

const defaultTokenCleanupInterval = time.Hour

// TokenCleanup periodically deletes expired refresh tokens.
type TokenCleanup struct {
	repo     *authrepo.Repository
	log      *logger.Logger
	interval time.Duration
}

func NewTokenCleanup(repo *authrepo.Repository, log *logger.Logger, interval time.Duration) *TokenCleanup {
	if interval <= 0 {
		interval = defaultTokenCleanupInterval
	}
	return &TokenCleanup{repo: repo, log: log, interval: interval}
}

func (c *TokenCleanup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := c.repo.PruneExpiredRefreshTokens(ctx, time.Now())
			if err != nil {
				c.log.Error("refresh token cleanup failed", "error", err)
				continue
			}
			if pruned > 0 {
				c.log.Info("pruned expired refresh tokens", "count", pruned)
			}
		}
	}
}
