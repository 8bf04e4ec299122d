package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/casualjim/omnichat/provider"
)

// SlidingWindow admits at most limit acquisitions within any window.
// It keeps the admission times of the current window, so a permit frees
// exactly one window after it was taken.
type SlidingWindow struct {
	limit      int
	window     time.Duration
	queueLimit int
	now        func() time.Time

	mu      sync.Mutex
	stamps  []time.Time
	waiting int
}

// NewSlidingWindow admits limit acquisitions per window. Up to queueLimit
// callers may wait for a permit; the rest are rejected.
func NewSlidingWindow(limit int, window time.Duration, queueLimit int) *SlidingWindow {
	return &SlidingWindow{
		limit:      max(limit, 1),
		window:     window,
		queueLimit: max(queueLimit, 0),
		now:        time.Now,
	}
}

// TryAcquire takes a permit when one is free.
func (l *SlidingWindow) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.reserve()
	return ok
}

// Acquire takes a permit, waiting for one to free when the queue has room.
// A full queue yields provider.ErrRateLimited, an ended ctx its error.
func (l *SlidingWindow) Acquire(ctx context.Context) error {
	l.mu.Lock()
	wait, ok := l.reserve()
	if ok {
		l.mu.Unlock()
		return nil
	}
	if l.waiting >= l.queueLimit {
		l.mu.Unlock()
		return provider.ErrRateLimited
	}
	l.waiting++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		l.mu.Lock()
		wait, ok = l.reserve()
		l.mu.Unlock()
		if ok {
			return nil
		}
		timer.Reset(wait)
	}
}

// Available reports the number of permits free right now.
func (l *SlidingWindow) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return l.limit - len(l.stamps)
}

// reserve must be called with mu held. When no permit is free it returns how
// long until the oldest one expires.
func (l *SlidingWindow) reserve() (time.Duration, bool) {
	now := l.now()
	l.evict(now)
	if len(l.stamps) < l.limit {
		l.stamps = append(l.stamps, now)
		return 0, true
	}
	return max(l.stamps[0].Add(l.window).Sub(now), time.Millisecond), false
}

func (l *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
