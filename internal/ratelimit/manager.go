package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisCooldown is how long the manager stays on memory after a Redis failure.
const redisCooldown = 30 * time.Second

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// redisTarget identifies the Redis connection a limiter was built for.
type redisTarget struct {
	addr     string
	password string
	db       int
	prefix   string
}

func targetFor(cfg SettingsConfig) (redisTarget, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return redisTarget{}, errors.New("rate limit redis: missing address")
	}
	return redisTarget{
		addr:     addr,
		password: cfg.RedisPassword,
		db:       max(cfg.RedisDB, 0),
		prefix:   strings.TrimSpace(cfg.RedisPrefix),
	}, nil
}

// Manager counts against Redis when it is enabled and reachable, and against
// process memory otherwise.
type Manager struct {
	provider  SettingsProvider
	now       func() time.Time
	newClient RedisClientFactory
	memory    *MemoryLimiter

	mu          sync.Mutex
	redis       *RedisLimiter
	target      redisTarget
	memoryUntil time.Time
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(provider SettingsProvider, now func() time.Time, newClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if now == nil {
		now = time.Now
	}
	if newClient == nil {
		newClient = redis.NewClient
	}
	return &Manager{
		provider:  provider,
		now:       now,
		newClient: newClient,
		memory:    NewMemoryLimiter(),
	}
}

// Settings returns the current settings snapshot.
func (m *Manager) Settings() SettingsConfig {
	if m == nil {
		return SettingsConfig{}
	}
	return m.provider()
}

// Allow counts one request against decision.
func (m *Manager) Allow(ctx context.Context, decision Decision) (Result, error) {
	if m == nil || !decision.Enforced() {
		return Result{Allowed: true}, nil
	}
	now := m.now()
	window := WindowAt(now, decision.Window)
	cfg := m.provider()
	if !cfg.RedisEnabled {
		return m.memory.Allow(ctx, decision, window)
	}

	shared, errRedis := m.sharedLimiter(ctx, cfg, now)
	if errRedis == nil && shared != nil {
		result, errAllow := shared.Allow(ctx, decision, window)
		if errAllow == nil {
			return result, nil
		}
		errRedis = errAllow
	}
	if errRedis != nil {
		m.coolDown(errRedis, now)
	}
	return m.memory.Allow(ctx, decision, window)
}

// Close releases the Redis client, if any.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedisLocked()
}

// sharedLimiter returns the Redis limiter for cfg, connecting when the target
// changed. It returns nil without error while cooling down.
func (m *Manager) sharedLimiter(ctx context.Context, cfg SettingsConfig, now time.Time) (*RedisLimiter, error) {
	target, errTarget := targetFor(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.memoryUntil) {
		return nil, nil
	}
	if errTarget != nil {
		return nil, errTarget
	}
	if m.redis != nil && m.target == target {
		return m.redis, nil
	}
	m.dropRedisLocked()

	client := m.newClient(&redis.Options{Addr: target.addr, Password: target.password, DB: target.db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, errPing
	}
	m.redis = NewRedisLimiter(client, target.prefix)
	m.target = target
	return m.redis, nil
}

func (m *Manager) coolDown(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.memoryUntil) {
		return
	}
	m.memoryUntil = now.Add(redisCooldown)
	log.WithError(err).WithField("until", m.memoryUntil).Warn("rate limit: redis unavailable, counting in memory")
}

func (m *Manager) dropRedisLocked() {
	if m.redis == nil {
		return
	}
	_ = m.redis.client.Close()
	m.redis = nil
	m.target = redisTarget{}
}
