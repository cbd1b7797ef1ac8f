package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/generator"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/templates"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	"github.com/router-for-me/CodegenAdmin/internal/db"
	internalhttp "github.com/router-for-me/CodegenAdmin/internal/http/api/admin"
	"github.com/router-for-me/CodegenAdmin/internal/ratelimit"
	"github.com/router-for-me/CodegenAdmin/internal/store"
	"github.com/router-for-me/CodegenAdmin/internal/watcher"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// historyJanitorInterval is how often expired history snapshots are purged.
const historyJanitorInterval = time.Hour

// Services holds the stores and the generator built around one database connection.
type Services struct {
	DB          *gorm.DB
	ConfigPath  string
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

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return db.Migrate(conn)
}

// OpenServices connects to the database, migrates it, loads the settings
// snapshot and wires the generator.
func OpenServices(ctx context.Context, cfg config.AppConfig) (*Services, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		closeDB(conn)
		return nil, errMigrate
	}
	jwtConfig, _ := config.LoadJWTConfig(configPath)
	genConfig, errGen := config.LoadGeneratorConfig(configPath)
	if errGen != nil {
		closeDB(conn)
		return nil, errGen
	}

	settings := store.NewSettingStore(conn)
	if errRefresh := settings.Refresh(ctx); errRefresh != nil {
		closeDB(conn)
		return nil, errRefresh
	}

	registry := render.NewRegistry()
	if errRegister := templates.Register(registry); errRegister != nil {
		closeDB(conn)
		return nil, errRegister
	}

	s := &Services{
		DB:          conn,
		ConfigPath:  configPath,
		JWT:         jwtConfig,
		Tenant:      config.LoadTenantConfig(configPath),
		Tables:      store.NewTableStore(conn),
		Templates:   store.NewTemplateStore(conn),
		DataSources: store.NewDataSourceStore(conn),
		Settings:    settings,
		History:     history.NewStore(conn, genConfig.HistoryLimit, genConfig.HistoryRetentionDays),
		Registry:    registry,
		Limiter:     ratelimit.NewManager(nil, nil, nil),
	}
	s.Sources = datasource.NewManager(conn, s.DataSources)
	s.Generator = generator.New(generator.Deps{
		Tables:    s.Tables,
		Templates: s.Templates,
		History:   s.History,
		Sources:   s.Sources,
		Registry:  registry,
		Config:    genConfig,
	})
	return s, nil
}

// Close releases cached data source connections and the primary database.
func (s *Services) Close() {
	if s == nil {
		return
	}
	s.Sources.Close()
	s.Limiter.Close()
	closeDB(s.DB)
}

// Handler builds the gin engine serving the admin API.
func (s *Services) Handler(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	internalhttp.RegisterAdminRoutes(engine, internalhttp.Deps{
		DB:          s.DB,
		JWT:         s.JWT,
		Tenant:      s.Tenant,
		Generator:   s.Generator,
		Tables:      s.Tables,
		Templates:   s.Templates,
		DataSources: s.DataSources,
		Settings:    s.Settings,
		History:     s.History,
		Sources:     s.Sources,
		Registry:    s.Registry,
		Limiter:     s.Limiter,
	})
	return engine
}

// RunServer boots the admin API and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	services, err := OpenServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	if services.JWT.Secret == "" {
		log.Warn("jwt secret is empty; every admin request will be rejected")
	}
	serverCfg := config.LoadServerConfig(services.ConfigPath, defaultPort)
	srv := &http.Server{
		Addr:              serverCfg.Addr(),
		Handler:           services.Handler(serverCfg.Debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runHistoryJanitor(janitorCtx, services.History, historyJanitorInterval)

	dbWatcher := watcher.New(services.DB, 0, services.Sources.Evict)
	dbWatcher.Start(ctx)
	defer dbWatcher.Stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting codegen admin on %s with config=%s", srv.Addr, services.ConfigPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", errListen)
	}
	return nil
}

// runHistoryJanitor purges snapshots past the retention window until ctx ends.
func runHistoryJanitor(ctx context.Context, hist *history.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		purgeExpiredHistory(ctx, hist, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func purgeExpiredHistory(ctx context.Context, hist *history.Store, now time.Time) int64 {
	days := hist.RetentionDays()
	deleted, errCleanup := hist.Cleanup(ctx, days, now)
	if errCleanup != nil {
		if ctx.Err() == nil {
			log.WithError(errCleanup).Warn("history cleanup failed")
		}
		return 0
	}
	if deleted > 0 {
		log.WithFields(log.Fields{"deleted": deleted, "retention_days": days}).Info("expired history purged")
	}
	return deleted
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func closeDB(conn *gorm.DB) {
	if conn == nil {
		return
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.Errorf("sql db close error: %v", errClose)
	}
}
