package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	base := time.Unix(1_700_000_040, 0)
	decision := Decision{Key: "t:a", Limit: 2, Window: time.Minute}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, decision, WindowAt(base.Add(time.Duration(i)*time.Second), time.Minute))
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, res.Allowed, err)
		}
		if res.Remaining != 1-i {
			t.Fatalf("request %d: remaining = %d", i, res.Remaining)
		}
	}
	res, _ := l.Allow(ctx, decision, WindowAt(base.Add(5*time.Second), time.Minute))
	if res.Allowed || res.Remaining != 0 {
		t.Fatalf("third request in the window should be rejected, got %+v", res)
	}
	if want := time.Unix(1_700_000_100, 0).UTC(); !res.Reset.Equal(want) {
		t.Fatalf("reset = %v, want %v", res.Reset, want)
	}
	other := Decision{Key: "t:b", Limit: 2, Window: time.Minute}
	if got, _ := l.Allow(ctx, other, WindowAt(base, time.Minute)); !got.Allowed {
		t.Fatalf("other tenant should have its own counter")
	}
	if next, _ := l.Allow(ctx, decision, WindowAt(base.Add(time.Minute), time.Minute)); !next.Allowed {
		t.Fatalf("next window should reset the counter")
	}
}

func TestWindowAt(t *testing.T) {
	now := time.Unix(1_700_000_075, 500)
	w := WindowAt(now, 30*time.Second)
	if !w.Start.Equal(time.Unix(1_700_000_070, 0)) || !w.End.Equal(time.Unix(1_700_000_100, 0)) {
		t.Fatalf("unexpected window %+v", w)
	}
	if w.ID() != "1700000070" {
		t.Fatalf("id = %s", w.ID())
	}
	if tiny := WindowAt(now, 0); tiny.End.Sub(tiny.Start) != time.Second {
		t.Fatalf("zero size should widen to one second, got %+v", tiny)
	}
}

func TestMemoryLimiterPrunesExpiredCounters(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	old := WindowAt(time.Unix(1_700_000_000, 0), time.Second)
	for i := 0; i < pruneThreshold; i++ {
		d := Decision{Key: fmt.Sprintf("t:%d", i), Limit: 1, Window: time.Second}
		if _, err := l.Allow(ctx, d, old); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	later := WindowAt(time.Unix(1_700_000_060, 0), time.Second)
	if _, err := l.Allow(ctx, Decision{Key: "t:new", Limit: 1, Window: time.Second}, later); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if got := l.size(); got != 1 {
		t.Fatalf("expected expired counters to be pruned, %d left", got)
	}
}

func TestResolve(t *testing.T) {
	cfg := SettingsConfig{Limit: 5, WindowSeconds: 30}
	if d := Resolve(tenant.Scope{TenantID: "root", Super: true}, cfg); d.Limit != 0 {
		t.Fatalf("super tenant should not be limited, got %+v", d)
	}
	d := Resolve(tenant.Scope{TenantID: "t1"}, cfg)
	if d.Key != "t:t1" || d.Limit != 5 || d.Window != 30*time.Second {
		t.Fatalf("unexpected decision %+v", d)
	}
	if d := Resolve(tenant.Scope{TenantID: "t1"}, SettingsConfig{}); d.Limit != 0 {
		t.Fatalf("zero limit should disable limiting, got %+v", d)
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	created := 0
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 1, WindowSeconds: 60, RedisEnabled: true, RedisAddr: "127.0.0.1:1"}
	}, func() time.Time { return now }, func(options *redis.Options) *redis.Client {
		created++
		options.DialTimeout = 50 * time.Millisecond
		return redis.NewClient(options)
	})
	defer m.Close()

	decision := Decision{Key: "t:x", Limit: 1, Window: time.Minute}
	first, err := m.Allow(context.Background(), decision)
	if err != nil || !first.Allowed {
		t.Fatalf("first request: allowed=%v err=%v", first.Allowed, err)
	}
	second, _ := m.Allow(context.Background(), decision)
	if second.Allowed {
		t.Fatalf("memory fallback should enforce the limit")
	}
	if created != 1 {
		t.Fatalf("breaker should stop reconnect attempts, got %d clients", created)
	}
}
