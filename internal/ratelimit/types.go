// Package ratelimit throttles generation requests per tenant with a fixed-window
// counter held in memory or Redis.
package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts one request against decision inside window.
type Limiter interface {
	Allow(ctx context.Context, decision Decision, window Window) (Result, error)
}

// Decision describes the resolved limit for one caller.
type Decision struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Enforced reports whether the decision limits anything.
func (d Decision) Enforced() bool {
	return d.Limit > 0 && d.Key != ""
}

// Window is one fixed counting period.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the window of length size containing now, aligned the way
// time.Truncate aligns. Sizes below one second count as one second.
func WindowAt(now time.Time, size time.Duration) Window {
	if size < time.Second {
		size = time.Second
	}
	start := now.UTC().Truncate(size)
	return Window{Start: start, End: start.Add(size)}
}

// ID identifies the window in storage keys.
func (w Window) ID() string {
	return strconv.FormatInt(w.Start.Unix(), 10)
}

// tally turns a post-increment count into a Result.
func tally(decision Decision, count int64, window Window) Result {
	if count > int64(decision.Limit) {
		return Result{Allowed: false, Remaining: 0, Reset: window.End}
	}
	return Result{Allowed: true, Remaining: decision.Limit - int(count), Reset: window.End}
}
