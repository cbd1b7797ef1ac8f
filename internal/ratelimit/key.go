package ratelimit

import (
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/tenant"
)

// KeyForTenant builds the limiter key for a tenant.
func KeyForTenant(tenantID string) string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ""
	}
	return "t:" + tenantID
}

// Resolve returns the limit that applies to scope. The super tenant is never limited.
func Resolve(scope tenant.Scope, cfg SettingsConfig) Decision {
	if scope.Super || cfg.Limit <= 0 {
		return Decision{}
	}
	return Decision{
		Key:    KeyForTenant(scope.TenantID),
		Limit:  cfg.Limit,
		Window: time.Duration(cfg.WindowSeconds) * time.Second,
	}
}
