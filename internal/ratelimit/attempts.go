// Package ratelimit counts failed or blocked attempts per source IP for the
// pre-authentication account recovery endpoints.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 10
	DefaultWindow      = 30 * time.Minute
)

type entry struct {
	count         int
	lastAttemptAt time.Time
}

// AttemptLimiter is a per-IP attempt counter. An entry goes stale once more
// than Window has passed since its last recorded attempt.
type AttemptLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func New(maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &AttemptLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     map[string]*entry{},
	}
}

// WithClock replaces the time source.
func (l *AttemptLimiter) WithClock(now func() time.Time) *AttemptLimiter {
	l.now = now
	return l
}

func (l *AttemptLimiter) MaxAttempts() int {
	return l.maxAttempts
}

func (l *AttemptLimiter) Window() time.Duration {
	return l.window
}

// IsAllowed is true when the IP has no live entry or fewer than MaxAttempts
// recorded attempts in the current window.
func (l *AttemptLimiter) IsAllowed(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.liveLocked(ip)
	if !ok {
		return true
	}
	return e.count < l.maxAttempts
}

// RecordAttempt counts one failed or blocked attempt and returns the new count.
func (l *AttemptLimiter) RecordAttempt(ip string) int {
	now := l.now()

	l.mu.Lock()
	e, ok := l.liveLocked(ip)
	if !ok {
		e = &entry{}
		l.entries[ip] = e
	}
	e.count++
	e.lastAttemptAt = now
	count := e.count
	l.mu.Unlock()

	slog.Warn("recovery attempt recorded", "client_ip", ip, "attempts", count)
	return count
}

func (l *AttemptLimiter) RemainingAttempts(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.liveLocked(ip)
	if !ok {
		return l.maxAttempts
	}
	return max(0, l.maxAttempts-e.count)
}

// Prune drops stale entries and returns how many were removed.
func (l *AttemptLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip := range l.entries {
		if _, ok := l.liveLocked(ip); !ok {
			removed++
		}
	}
	return removed
}

// StartPruneTicker runs Prune on a regular interval until ctx is cancelled.
func (l *AttemptLimiter) StartPruneTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Prune(); removed > 0 {
				slog.Debug("pruned stale recovery attempt entries", "removed", removed)
			}
		}
	}
}

func (l *AttemptLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// liveLocked returns the entry for ip unless it is stale; stale entries are
// deleted on sight. Callers hold l.mu.
func (l *AttemptLimiter) liveLocked(ip string) (*entry, bool) {
	e, ok := l.entries[ip]
	if !ok {
		return nil, false
	}
	if l.now().Sub(e.lastAttemptAt) > l.window {
		delete(l.entries, ip)
		return nil, false
	}
	return e, true
}
