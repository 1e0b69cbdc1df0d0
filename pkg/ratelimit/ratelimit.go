package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
// Implementations provide fixed-window semantics: the per-key count resets
// only when the window boundary is crossed, never continuously.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a process-local fixed-window limiter.
type MemoryLimiter struct {
	windowSize time.Duration
	max        int
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryLimiter builds an in-memory limiter allowing max requests per key
// per window.
func NewMemoryLimiter(windowSize time.Duration, max int) *MemoryLimiter {
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	if max <= 0 {
		max = 10
	}
	return &MemoryLimiter{
		windowSize: windowSize,
		max:        max,
		now:        time.Now,
		windows:    make(map[string]*window),
	}
}

// Allow reports whether the key has remaining quota in the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.windowSize {
		l.windows[key] = &window{start: now, count: 1}
		l.pruneLocked(now)
		return true, nil
	}

	if w.count >= l.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// pruneLocked drops windows that expired more than one window ago. Called
// opportunistically on window rollover to bound the map size.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.windowSize {
			delete(l.windows, key)
		}
	}
}
