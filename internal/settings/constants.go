package settings

// DB config keys for settings.
const (
	// HistoryLimitKey caps how many history snapshots are kept per table and tenant.
	HistoryLimitKey = "GEN_HISTORY_LIMIT"
	// HistoryRetentionDaysKey controls the age-based history cleanup window in days.
	HistoryRetentionDaysKey = "GEN_HISTORY_RETENTION_DAYS"
	// DefaultAuthorKey overrides the function author written into generated code.
	DefaultAuthorKey = "GEN_DEFAULT_AUTHOR"
)

// DB config keys for generation rate limiting.
const (
	// RateLimitKey caps generation requests per tenant and window; 0 disables limiting.
	RateLimitKey = "GEN_RATE_LIMIT"
	// RateLimitWindowSecondsKey sets the fixed window length in seconds.
	RateLimitWindowSecondsKey = "GEN_RATE_LIMIT_WINDOW_SECONDS"
	// RateLimitRedisEnabledKey switches counters to Redis.
	RateLimitRedisEnabledKey = "GEN_RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey is the Redis address.
	RateLimitRedisAddrKey = "GEN_RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey is the Redis password.
	RateLimitRedisPasswordKey = "GEN_RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey is the Redis database index.
	RateLimitRedisDBKey = "GEN_RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey prefixes Redis counter keys.
	RateLimitRedisPrefixKey = "GEN_RATE_LIMIT_REDIS_PREFIX"
)

// Rate limit defaults.
const (
	DefaultRateLimit              = 0
	DefaultRateLimitWindowSeconds = 60
	DefaultRateLimitRedisPrefix   = "codegen:rl"
)
