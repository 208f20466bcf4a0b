package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/agent"
	"github.com/wonny/sectorwatch/pkg/logger"
)

// CycleRunner runs one ingestion cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*agent.CycleReport, error)
}

// CycleJob drives the watchlist agent on a fixed interval
// ⭐ SSOT: 수집 사이클 주기는 이 Job에서만
type CycleJob struct {
	runner   CycleRunner
	interval time.Duration
	logger   *logger.Logger
}

// NewCycleJob creates a new cycle job
func NewCycleJob(runner CycleRunner, interval time.Duration, log *logger.Logger) *CycleJob {
	return &CycleJob{
		runner:   runner,
		interval: interval,
		logger:   log,
	}
}

// Name returns the job name
func (j *CycleJob) Name() string {
	return "watchlist_cycle"
}

// Schedule returns the cron schedule (every 15 minutes by default)
func (j *CycleJob) Schedule() string {
	return "@every " + j.interval.String()
}

// MaxRetries is zero: a failed cycle is retried by the next tick
func (j *CycleJob) MaxRetries() int { return 0 }

// RetryDelay is unused since MaxRetries is zero
func (j *CycleJob) RetryDelay() time.Duration { return 0 }

// Run executes one cycle
func (j *CycleJob) Run(ctx context.Context) error {
	report, err := j.runner.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("watchlist cycle: %w", err)
	}

	if report.QuotaExhausted {
		j.logger.WithCycle(report.CycleID).Warn("Cycle ended early on provider quota")
	}
	return nil
}
