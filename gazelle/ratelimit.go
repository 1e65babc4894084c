package gazelle

import (
	"context"
	"sync"
	"time"
)

// requestWindow is the rolling interval the trackers enforce their
// request ceiling over.
const requestWindow = 10 * time.Second

// WindowLimiter throttles requests to at most N per rolling 10-second
// window, where N is the tracker's request limit. It keeps the last N
// request stamps, oldest first, and gates only on the oldest retained
// stamp. That is a conservative approximation of a full sliding-window
// count: it may under-utilize the window slightly but never exceeds the
// ceiling when requests are issued serially from one client. Callers may
// depend on the exact timing, so this is deliberately not a token bucket.
type WindowLimiter struct {
	stamps []time.Time
	limit  int
	mutex  sync.Mutex
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWindowLimiter creates a limiter for the given per-window request limit.
// The history is seeded with one far-past stamp so the first limit-1
// requests are never throttled by an empty history.
func NewWindowLimiter(limit int) *WindowLimiter {
	if limit < 1 {
		limit = 1
	}
	return &WindowLimiter{
		stamps: []time.Time{time.Unix(0, 0)},
		limit:  limit,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks until issuing one more request will not exceed the limit.
// It cannot fail, only delay; the context aborts the delay early.
func (w *WindowLimiter) Wait(ctx context.Context) error {
	w.mutex.Lock()
	oldest := w.stamps[0]
	w.mutex.Unlock()

	elapsed := w.now().Sub(oldest)
	if elapsed <= requestWindow {
		return w.sleep(ctx, requestWindow-elapsed)
	}
	return nil
}

// Record stamps the moment a request went out, evicting the oldest stamp
// once the history holds limit entries.
func (w *WindowLimiter) Record() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if len(w.stamps) >= w.limit {
		w.stamps = w.stamps[len(w.stamps)-w.limit+1:]
	}
	w.stamps = append(w.stamps, w.now())
}

// sleepCtx sleeps for d or until the context is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
