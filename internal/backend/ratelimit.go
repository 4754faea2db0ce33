package backend

import (
	"sync"
	"time"
)

// WindowLimiter enforces a fixed-window request budget client side, so the
// process stops before the remote API starts returning 429s.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a request if the window has room. Prune, check, and record
// happen under one lock so concurrent callers cannot overshoot the limit.
func (l *WindowLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	if len(l.stamps) >= l.limit {
		return false
	}
	l.stamps = append(l.stamps, l.now())
	return true
}

// Status reports how much of the window budget remains and when the oldest
// recorded request falls out of the window.
func (l *WindowLimiter) Status() (remaining int, resetIn time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	remaining = l.limit - len(l.stamps)
	if len(l.stamps) > 0 {
		resetIn = l.stamps[0].Add(l.window).Sub(now)
		if resetIn < 0 {
			resetIn = 0
		}
	}
	return remaining, resetIn
}

func (l *WindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.stamps[:0]
	for _, stamp := range l.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	l.stamps = kept
}
