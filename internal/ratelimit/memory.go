package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold is the counter count above which expired windows are swept.
const pruneThreshold = 1024

type memoryCounter struct {
	end   time.Time
	start time.Time
	count int64
}

// MemoryLimiter keeps per-key counters for the current window in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: make(map[string]*memoryCounter)}
}

// Allow counts one request for decision.Key in window.
func (l *MemoryLimiter) Allow(_ context.Context, decision Decision, window Window) (Result, error) {
	if !decision.Enforced() {
		return Result{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	counter, ok := l.counters[decision.Key]
	if !ok || !counter.start.Equal(window.Start) {
		if len(l.counters) >= pruneThreshold {
			l.prune(window.Start)
		}
		counter = &memoryCounter{start: window.Start, end: window.End}
		l.counters[decision.Key] = counter
	}
	if counter.count >= int64(decision.Limit) {
		return tally(decision, counter.count+1, window), nil
	}
	counter.count++
	return tally(decision, counter.count, window), nil
}

// prune drops counters whose window ended before now.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, counter := range l.counters {
		if !counter.end.After(now) {
			delete(l.counters, key)
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
