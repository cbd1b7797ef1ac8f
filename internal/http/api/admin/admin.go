package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/generator"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	handlers "github.com/router-for-me/CodegenAdmin/internal/http/api/admin/handlers"
	"github.com/router-for-me/CodegenAdmin/internal/http/api/admin/permissions"
	"github.com/router-for-me/CodegenAdmin/internal/ratelimit"
	"github.com/router-for-me/CodegenAdmin/internal/security"
	"github.com/router-for-me/CodegenAdmin/internal/store"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps bundles the services the admin routes are built on.
type Deps struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	Tenant      config.TenantConfig
	Generator   *generator.Generator
	Tables      *store.TableStore
	Templates   *store.TemplateStore
	DataSources *store.DataSourceStore
	Settings    *store.SettingStore
	History     *history.Store
	Sources     *datasource.Manager
	Registry    *render.Registry
	Limiter     *ratelimit.Manager
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	authed := r.Group("/v0/admin")
	authed.Use(adminAuthMiddleware(deps.JWT, deps.Tenant))
	authed.Use(adminPermissionMiddleware())

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	settingHandler := handlers.NewSettingHandler(deps.Settings)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Put)
	authed.PATCH("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	gen := authed.Group("/gen")

	limited := generationRateLimitMiddleware(deps.Limiter)
	tableHandler := handlers.NewGenTableHandler(deps.Generator, deps.Tables)
	gen.GET("/db-tables", tableHandler.DBTables)
	gen.POST("/tables/import", tableHandler.Import)
	gen.GET("/tables", tableHandler.List)
	gen.POST("/tables/batch-delete", tableHandler.BatchDelete)
	gen.GET("/tables/:id", tableHandler.Get)
	gen.PUT("/tables/:id", tableHandler.Update)
	gen.DELETE("/tables/:id", tableHandler.Delete)
	gen.POST("/tables/:id/sync", tableHandler.Sync)
	gen.GET("/tables/:id/preview", limited, tableHandler.Preview)
	gen.POST("/generate", limited, tableHandler.Generate)
	gen.POST("/download", limited, tableHandler.Download)

	historyHandler := handlers.NewGenHistoryHandler(deps.Generator, deps.History)
	gen.GET("/history", historyHandler.List)
	gen.POST("/history/batch-delete", historyHandler.BatchDelete)
	gen.POST("/history/cleanup", historyHandler.Cleanup)
	gen.GET("/history/:id", historyHandler.Get)
	gen.GET("/history/:id/download", historyHandler.Download)
	gen.DELETE("/history/:id", historyHandler.Delete)

	dataSourceHandler := handlers.NewDataSourceHandler(deps.DataSources, deps.Sources)
	gen.GET("/data-sources", dataSourceHandler.List)
	gen.POST("/data-sources", dataSourceHandler.Create)
	gen.POST("/data-sources/test", dataSourceHandler.TestDraft)
	gen.GET("/data-sources/:id", dataSourceHandler.Get)
	gen.PUT("/data-sources/:id", dataSourceHandler.Update)
	gen.DELETE("/data-sources/:id", dataSourceHandler.Delete)
	gen.POST("/data-sources/:id/test", dataSourceHandler.Test)

	templateHandler := handlers.NewTemplateHandler(deps.Templates, deps.Registry)
	gen.GET("/templates/builtin", templateHandler.Builtin)
	gen.POST("/templates/validate", templateHandler.Validate)
	gen.GET("/template-groups", templateHandler.ListGroups)
	gen.POST("/template-groups", templateHandler.CreateGroup)
	gen.GET("/template-groups/:id", templateHandler.GetGroup)
	gen.PUT("/template-groups/:id", templateHandler.UpdateGroup)
	gen.DELETE("/template-groups/:id", templateHandler.DeleteGroup)
	gen.POST("/template-groups/:id/templates", templateHandler.CreateTemplate)
	gen.PUT("/template-groups/:id/templates/:template_id", templateHandler.UpdateTemplate)
	gen.DELETE("/template-groups/:id/templates/:template_id", templateHandler.DeleteTemplate)
}

// adminAuthMiddleware validates admin JWTs and loads the caller's tenant scope.
func adminAuthMiddleware(jwtCfg config.JWTConfig, tenantCfg config.TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		scope := tenant.NewScope(claims.TenantID, tenantCfg.SuperTenantID)
		c.Request = c.Request.WithContext(tenant.WithScope(c.Request.Context(), scope))
		c.Set(handlers.ContextKeyScope, scope)
		c.Set(handlers.ContextKeyUsername, claims.Username)
		c.Set(handlers.ContextKeyPermissions, permissions.NormalizePermissions(claims.Permissions))
		c.Set(handlers.ContextKeySuperAdmin, claims.SuperAdmin)
		c.Next()
	}
}

// adminPermissionMiddleware checks the route's permission key against the caller's grants.
func adminPermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(handlers.ContextKeySuperAdmin) {
			c.Next()
			return
		}
		key := permissions.Key(c.Request.Method, c.FullPath())
		var granted []string
		if value, ok := c.Get(handlers.ContextKeyPermissions); ok {
			granted, _ = value.([]string)
		}
		if !permissions.HasPermission(granted, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "permission": key})
			return
		}
		c.Next()
	}
}

// generationRateLimitMiddleware throttles rendering endpoints per tenant.
func generationRateLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		scope, _ := tenant.FromContext(c.Request.Context())
		decision := ratelimit.Resolve(scope, limiter.Settings())
		if decision.Limit <= 0 {
			c.Next()
			return
		}
		result, errAllow := limiter.Allow(c.Request.Context(), decision)
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit check failed")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": "rate_limited", "error": "too many generation requests"})
			return
		}
		c.Next()
	}
}
