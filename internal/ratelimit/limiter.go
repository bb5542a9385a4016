package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a sliding window of admitted sessions per source
// identity. Only admitted sessions consume window slots: a rejected attempt
// never counts against the window.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	admitted map[string][]time.Time

	now func() time.Time
}

// NewLimiter creates a limiter allowing limit admissions per identity per
// window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		window:   window,
		admitted: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether a new session from identity may be admitted, and
// records the admission when it is.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	history := l.admitted[identity]
	live := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) >= l.limit {
		l.admitted[identity] = live
		return false
	}

	l.admitted[identity] = append(live, now)
	return true
}
