package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression (seconds field first)
	// Examples: "0 30 6 * * *" (every day at 06:30)
	//           "@every 15m", "@daily"
	Schedule() string
}

// RetryPolicy lets a job override the scheduler's default retries.
// Jobs that recover on their next tick return 0.
type RetryPolicy interface {
	MaxRetries() int
	RetryDelay() time.Duration
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the latest results of one job plus lifetime counters.
// Counters survive trimming of Results.
type JobHistory struct {
	Results     []JobResult // newest last, at most maxHistory
	Runs        int
	Failures    int
	LastSuccess *JobResult
	LastFailure *JobResult
}

// Add records one result
func (h *JobHistory) Add(result JobResult) {
	h.Runs++
	if result.Success {
		h.LastSuccess = &result
	} else {
		h.Failures++
		h.LastFailure = &result
	}

	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failed returns the failures still inside the kept window
func (h *JobHistory) Failed() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// SuccessRate returns the lifetime success rate (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if h.Runs == 0 {
		return 0.0
	}
	return float64(h.Runs-h.Failures) / float64(h.Runs)
}
