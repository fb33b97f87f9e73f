package httpapi

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// fixedWindowLimiter allows max hits per key per window. Expired windows are
// pruned every few minutes by a background goroutine until Stop.
type fixedWindowLimiter struct {
	mu      sync.Mutex
	span    time.Duration
	max     int
	windows map[string]*window
	stopCh  chan struct{}
	once    sync.Once
}

func newFixedWindowLimiter(max int, span time.Duration) *fixedWindowLimiter {
	l := &fixedWindowLimiter{
		span:    span,
		max:     max,
		windows: make(map[string]*window),
		stopCh:  make(chan struct{}),
	}
	go l.pruneLoop(5 * time.Minute)
	return l
}

// Allow records a hit for key. When the limit is exceeded it returns false
// and the time left until the window resets.
func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	win := l.windows[key]
	if win == nil || !now.Before(win.resetAt) {
		win = &window{resetAt: now.Add(l.span)}
		l.windows[key] = win
	}
	win.count++
	if win.count <= l.max {
		return true, 0
	}
	return false, win.resetAt.Sub(now)
}

func (l *fixedWindowLimiter) pruneLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.prune(now)
		case <-l.stopCh:
			return
		}
	}
}

func (l *fixedWindowLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, win := range l.windows {
		if !now.Before(win.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *fixedWindowLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}
