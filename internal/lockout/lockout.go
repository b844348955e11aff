// Package lockout throttles local credential logins. A key (email plus
// client IP) that accumulates too many failures inside the window is blocked
// until the cooldown passes.
package lockout

import (
	"sync"
	"time"
)

type entry struct {
	failures    []time.Time
	lockedUntil time.Time
}

// Limiter is a fixed-window failed-attempt counter with cooldown. Safe for
// concurrent use.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxFailures int
	window      time.Duration
	cooldown    time.Duration
}

func New(maxFailures int, window, cooldown time.Duration) *Limiter {
	return &Limiter{
		entries:     make(map[string]*entry),
		maxFailures: maxFailures,
		window:      window,
		cooldown:    cooldown,
	}
}

// Allowed reports whether a login attempt for key may proceed at now.
func (l *Limiter) Allowed(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return true
	}
	return now.After(e.lockedUntil) || e.lockedUntil.IsZero()
}

// RecordFailure counts a failed attempt and locks the key once the threshold
// is crossed within the window.
func (l *Limiter) RecordFailure(key string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}

	cutoff := now.Add(-l.window)
	kept := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.failures = append(kept, now)

	if len(e.failures) >= l.maxFailures {
		e.lockedUntil = now.Add(l.cooldown)
		e.failures = e.failures[:0]
	}
}

// Reset clears all state for a key after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
