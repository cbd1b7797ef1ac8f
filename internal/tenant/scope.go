// Package tenant carries the caller's tenant through requests and filters queries by it.
package tenant

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Scope is the tenant context of one caller.
type Scope struct {
	TenantID string // Caller tenant.
	Super    bool   // Super tenant; unrestricted reads and deletes.
}

// NewScope builds a Scope, marking it super when tenantID equals superTenantID.
func NewScope(tenantID, superTenantID string) Scope {
	tenantID = strings.TrimSpace(tenantID)
	superTenantID = strings.TrimSpace(superTenantID)
	return Scope{
		TenantID: tenantID,
		Super:    superTenantID != "" && tenantID == superTenantID,
	}
}

// Owns reports whether a row belonging to tenantID is visible to the scope.
func (s Scope) Owns(tenantID string) bool {
	return s.Super || s.TenantID == tenantID
}

// Apply restricts conn to the scope's tenant unless the scope is super.
func (s Scope) Apply(conn *gorm.DB) *gorm.DB {
	return s.ApplyColumn(conn, "tenant_id")
}

// ApplyColumn is Apply with an explicit, possibly qualified, tenant column.
func (s Scope) ApplyColumn(conn *gorm.DB, column string) *gorm.DB {
	if s.Super {
		return conn
	}
	return conn.Where(column+" = ?", s.TenantID)
}

type scopeKey struct{}

// WithScope stores scope on ctx.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext returns the scope stored on ctx.
func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	return scope, ok
}
