package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until a call is allowed under a budget
type Limiter interface {
	Wait(ctx context.Context) error
}

// Window is an in-process sliding window limiter
// ⭐ SSOT: 프로세스 내 호출 예산은 여기서만 관리
//
// Call times come from time.Now(), whose monotonic reading makes the
// window immune to wall-clock jumps. Sleeping happens outside the lock.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time // ascending issue times inside the trailing window

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// OnBlock is invoked (outside the lock) before each blocking sleep
	OnBlock func(wait time.Duration)
}

// NewWindow creates a limiter allowing limit calls per window
func NewWindow(limit int, window time.Duration) *Window {
	if limit < 1 {
		limit = 1
	}
	return &Window{
		limit:  limit,
		window: window,
		calls:  make([]time.Time, 0, limit),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// PerMinute is shorthand for NewWindow(limit, time.Minute)
func PerMinute(limit int) *Window {
	return NewWindow(limit, time.Minute)
}

// Wait blocks until the call fits in the trailing window, then records it
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.prune(now)

		if len(w.calls) < w.limit {
			w.calls = append(w.calls, now)
			w.mu.Unlock()
			return nil
		}

		wait := w.calls[0].Add(w.window).Sub(now)
		w.mu.Unlock()

		if w.OnBlock != nil {
			w.OnBlock(wait)
		}
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining reports how many calls are available right now
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(w.now())
	return w.limit - len(w.calls)
}

// prune drops calls that left the window; caller holds mu
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
