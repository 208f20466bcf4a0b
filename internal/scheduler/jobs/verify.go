package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorwatch/internal/agent"
	"github.com/wonny/sectorwatch/pkg/logger"
)

// Verifier re-checks the watchlist against the selection policy
type Verifier interface {
	Verify(ctx context.Context) (*agent.VerifyReport, error)
}

// VerifyJob prunes the watchlist daily
type VerifyJob struct {
	verifier Verifier
	schedule string
	logger   *logger.Logger
}

// NewVerifyJob creates a new verify job
func NewVerifyJob(verifier Verifier, schedule string, log *logger.Logger) *VerifyJob {
	return &VerifyJob{
		verifier: verifier,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *VerifyJob) Name() string {
	return "watchlist_verify"
}

// Schedule returns the cron schedule (daily 06:30 by default)
func (j *VerifyJob) Schedule() string {
	return j.schedule
}

// MaxRetries retries once; a quota abort usually clears within the hour
func (j *VerifyJob) MaxRetries() int { return 1 }

// RetryDelay waits out the provider's daily-burst window
func (j *VerifyJob) RetryDelay() time.Duration { return 30 * time.Minute }

// Run executes the verification
func (j *VerifyJob) Run(ctx context.Context) error {
	report, err := j.verifier.Verify(ctx)
	if err != nil {
		return fmt.Errorf("watchlist verify: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"kept":    len(report.Kept),
		"dropped": len(report.Dropped),
	}).Info("Scheduled verification completed")
	return nil
}
