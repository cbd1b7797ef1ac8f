package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	"github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/security"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// InitRequest contains parameters for initial system setup.
type InitRequest struct {
	DatabaseType     string `json:"database_type"`
	DatabaseHost     string `json:"database_host"`
	DatabasePort     int    `json:"database_port"`
	DatabaseUser     string `json:"database_user"`
	DatabasePassword string `json:"database_password"`
	DatabaseName     string `json:"database_name"`
	DatabasePath     string `json:"database_path"`
	DatabaseSSLMode  string `json:"database_ssl_mode"`
	AdminUsername    string `json:"admin_username" binding:"required"` // Name stamped on the bootstrap token.
	SuperTenantID    string `json:"super_tenant_id"`                   // Defaults to 000000.
	Author           string `json:"author"`                            // Default author for generated code.
	PackageName      string `json:"package_name"`                      // Default package for generated code.
}

// InitStatusResponse reports whether initialization is complete.
type InitStatusResponse struct {
	Initialized bool `json:"initialized"`
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// dataSourceFromInit maps the request onto a data source definition so DSN
// building and validation are shared with registered data sources.
func dataSourceFromInit(req InitRequest) models.DataSource {
	return models.DataSource{
		Name:     "primary",
		Type:     req.DatabaseType,
		Host:     strings.TrimSpace(req.DatabaseHost),
		Port:     req.DatabasePort,
		Username: strings.TrimSpace(req.DatabaseUser),
		Password: req.DatabasePassword,
		Database: strings.TrimSpace(req.DatabaseName),
		Path:     strings.TrimSpace(req.DatabasePath),
		SSLMode:  strings.TrimSpace(req.DatabaseSSLMode),
	}
}

// BuildDSN builds a database DSN from the init request.
func BuildDSN(req InitRequest) (string, error) {
	ds := dataSourceFromInit(req)
	if errValidate := datasource.Validate(&ds); errValidate != nil {
		return "", errValidate
	}
	return datasource.BuildDSN(ds)
}

// TestDatabaseConnection validates that the DSN can connect and ping.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(conn)
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Ping()
}

// validateInitRequest normalizes and validates init input data.
func validateInitRequest(req *InitRequest) error {
	req.DatabaseType = datasource.NormalizeType(req.DatabaseType)
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.AdminUsername == "" {
		return fmt.Errorf("admin username is required")
	}
	req.SuperTenantID = strings.TrimSpace(req.SuperTenantID)
	if req.SuperTenantID == "" {
		req.SuperTenantID = config.DefaultSuperTenantID
	}
	req.Author = strings.TrimSpace(req.Author)
	req.PackageName = strings.TrimSpace(req.PackageName)
	return nil
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host        string       `yaml:"host"`
	Port        int          `yaml:"port"`
	DatabaseDSN string       `yaml:"database-dsn"`
	Debug       bool         `yaml:"debug"`
	JWT         jwtCfg       `yaml:"jwt"`
	Tenant      tenantCfg    `yaml:"tenant"`
	Generator   generatorCfg `yaml:"generator"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type tenantCfg struct {
	SuperTenantID string `yaml:"super-tenant-id"`
}

type generatorCfg struct {
	Author      string `yaml:"author,omitempty"`
	PackageName string `yaml:"package-name,omitempty"`
}

// WriteConfigFile writes the initial config file to disk and returns the generated JWT secret.
func WriteConfigFile(configPath string, dsn string, port int, req InitRequest) (string, error) {
	secret, errSecret := security.GenerateSecret(32)
	if errSecret != nil {
		return "", errSecret
	}
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: "720h",
		},
		Tenant: tenantCfg{SuperTenantID: req.SuperTenantID},
		Generator: generatorCfg{
			Author:      req.Author,
			PackageName: req.PackageName,
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return "", fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return "", fmt.Errorf("write config file: %w", errWrite)
	}
	return secret, nil
}

// PrepareDatabase migrates the database behind dsn.
func PrepareDatabase(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	return nil
}

// IssueBootstrapToken signs a super-admin token for the super tenant.
func IssueBootstrapToken(secret, username, superTenantID string, expiry time.Duration, now time.Time) (string, error) {
	return security.IssueAdminToken(secret, security.AdminClaims{
		TenantID:   superTenantID,
		Username:   username,
		SuperAdmin: true,
	}, expiry, now)
}

// ErrInitCompleted signals that initialization finished and the server should restart.
var ErrInitCompleted = errors.New("init completed")

// corsMiddleware enables permissive CORS for the init server.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// initHandler builds the init engine. done is closed after a successful setup.
func initHandler(configPath string, port int, done chan<- struct{}) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.GET("/v0/init/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, InitStatusResponse{Initialized: ConfigExists(configPath)})
	})

	engine.GET("/v0/init/prefill", func(c *gin.Context) {
		dsn := strings.TrimSpace(os.Getenv(config.EnvDBConnection))
		if dsn == "" {
			c.JSON(http.StatusOK, gin.H{"prefill": nil})
			return
		}
		prefill, errPrefill := initPrefillFromDSN(dsn)
		if errPrefill != nil {
			log.WithError(errPrefill).Warn("init prefill: ignoring DB_CONNECTION")
			c.JSON(http.StatusOK, gin.H{"prefill": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"prefill": prefill})
	})

	var closeOnce sync.Once
	engine.POST("/v0/init/setup", func(c *gin.Context) {
		if ConfigExists(configPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "System already initialized"})
			return
		}

		var req InitRequest
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
			return
		}
		if errValidate := validateInitRequest(&req); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
			return
		}

		dsn, errBuild := BuildDSN(req)
		if errBuild != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBuild.Error()})
			return
		}
		if errTest := TestDatabaseConnection(dsn); errTest != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Database connection failed: %v", errTest)})
			return
		}
		if errPrepare := PrepareDatabase(dsn); errPrepare != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to prepare database: %v", errPrepare)})
			return
		}

		secret, errWrite := WriteConfigFile(configPath, dsn, port, req)
		if errWrite != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to write config: %v", errWrite)})
			return
		}

		jwtConfig, _ := config.LoadJWTConfig(configPath)
		if jwtConfig.Secret == "" {
			jwtConfig.Secret = secret
		}
		token, errToken := IssueBootstrapToken(jwtConfig.Secret, req.AdminUsername, req.SuperTenantID, jwtConfig.Expiry, time.Now())
		if errToken != nil {
			if errRemove := os.Remove(configPath); errRemove != nil {
				log.Errorf("remove config file error: %v", errRemove)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to issue token: %v", errToken)})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Initialization successful",
			"token":           token,
			"super_tenant_id": req.SuperTenantID,
		})

		if done != nil {
			closeOnce.Do(func() {
				go func() {
					time.Sleep(500 * time.Millisecond)
					close(done)
				}()
			})
		}
	})

	engine.NoRoute(func(c *gin.Context) {
		if ConfigExists(configPath) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "System initializing, please restart the server"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "System not initialized, POST /v0/init/setup first"})
	})
	return engine
}

// RunInitServer starts the initialization server when config is missing.
func RunInitServer(ctx context.Context, cfg config.AppConfig, port int) error {
	gin.SetMode(gin.ReleaseMode)
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	initDone := make(chan struct{})
	addr := fmt.Sprintf(":%d", port)
	log.Infof("starting init server on %s (config not found at %s)", addr, configPath)

	srv := &http.Server{
		Addr:              addr,
		Handler:           initHandler(configPath, port, initDone),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-initDone:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("init server shutdown error: %v", errShutdown)
		}
	}()

	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}

	select {
	case <-initDone:
		return ErrInitCompleted
	default:
		return nil
	}
}
