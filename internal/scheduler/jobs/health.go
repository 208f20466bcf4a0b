package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/pkg/logger"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthJob pings the store between cycles so outages show up in logs early
type StoreHealthJob struct {
	store  Pinger
	logger *logger.Logger
}

// NewStoreHealthJob creates a new store health job
func NewStoreHealthJob(store Pinger, log *logger.Logger) *StoreHealthJob {
	return &StoreHealthJob{
		store:  store,
		logger: log,
	}
}

// Name returns the job name
func (j *StoreHealthJob) Name() string {
	return "store_health"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *StoreHealthJob) Schedule() string {
	return "0 */5 * * * *" // Every 5 minutes
}

// MaxRetries is zero: the store retries its own ping
func (j *StoreHealthJob) MaxRetries() int { return 0 }

// RetryDelay is unused since MaxRetries is zero
func (j *StoreHealthJob) RetryDelay() time.Duration { return 0 }

// Run executes the health check
func (j *StoreHealthJob) Run(ctx context.Context) error {
	if err := j.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	j.logger.Debug("Store health check passed")
	return nil
}
