package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
	EnvSuperTenantID = "SUPER_TENANT_ID"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// Generator defaults applied when the config file omits a value.
const (
	DefaultAuthor               = "codegen"
	DefaultPackageName          = "github.com/example/app"
	DefaultModuleName           = "system"
	DefaultHistoryLimit         = 10
	DefaultHistoryRetentionDays = 30
	DefaultSuperTenantID        = "000000"
)

// GeneratorConfig holds code generator defaults.
type GeneratorConfig struct {
	Author               string   `yaml:"author"`
	PackageName          string   `yaml:"package-name"`
	ModuleName           string   `yaml:"module-name"`
	TablePrefixes        []string `yaml:"table-prefixes"`
	AutoRemovePrefix     bool     `yaml:"auto-remove-prefix"`
	HistoryLimit         int      `yaml:"history-limit"`
	HistoryRetentionDays int      `yaml:"history-retention-days"`
}

// TenantConfig holds tenant resolution settings.
type TenantConfig struct {
	SuperTenantID string `yaml:"super-tenant-id"`
}

// LoadGeneratorConfig loads generator defaults from the YAML config file.
// A missing or unreadable file yields the defaults.
func LoadGeneratorConfig(configPath string) (GeneratorConfig, error) {
	// fileConfig maps the YAML fields needed for generator settings.
	type fileConfig struct {
		Generator GeneratorConfig `yaml:"generator"`
	}

	var result GeneratorConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return GeneratorConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		result = cfg.Generator
	}

	result.Author = strings.TrimSpace(result.Author)
	if result.Author == "" {
		result.Author = DefaultAuthor
	}
	result.PackageName = strings.TrimSpace(result.PackageName)
	if result.PackageName == "" {
		result.PackageName = DefaultPackageName
	}
	result.ModuleName = strings.TrimSpace(result.ModuleName)
	if result.ModuleName == "" {
		result.ModuleName = DefaultModuleName
	}
	prefixes := make([]string, 0, len(result.TablePrefixes))
	for _, prefix := range result.TablePrefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	result.TablePrefixes = prefixes
	if result.HistoryLimit <= 0 {
		result.HistoryLimit = DefaultHistoryLimit
	}
	if result.HistoryRetentionDays <= 0 {
		result.HistoryRetentionDays = DefaultHistoryRetentionDays
	}
	return result, nil
}

// LoadTenantConfig loads tenant settings, honoring the SUPER_TENANT_ID override.
func LoadTenantConfig(configPath string) TenantConfig {
	// fileConfig maps the YAML fields needed for tenant settings.
	type fileConfig struct {
		Tenant TenantConfig `yaml:"tenant"`
	}

	result := TenantConfig{}
	if data, errRead := os.ReadFile(configPath); errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Tenant
		}
	}
	if id := strings.TrimSpace(os.Getenv(EnvSuperTenantID)); id != "" {
		result.SuperTenantID = id
	}
	result.SuperTenantID = strings.TrimSpace(result.SuperTenantID)
	if result.SuperTenantID == "" {
		result.SuperTenantID = DefaultSuperTenantID
	}
	return result
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

// LoadServerConfig loads listener settings; defaultPort applies when the file omits a port.
func LoadServerConfig(configPath string, defaultPort int) ServerConfig {
	result := ServerConfig{}
	if data, errRead := os.ReadFile(configPath); errRead == nil {
		var cfg ServerConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg
		}
	}
	result.Host = strings.TrimSpace(result.Host)
	if result.Port <= 0 || result.Port > 65535 {
		result.Port = defaultPort
	}
	return result
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
