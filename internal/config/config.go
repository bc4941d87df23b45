package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CRITERIA_SERVER_PORT.
const EnvPrefix = "CRITERIA"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile searches the
// default locations for config.yaml.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/criteria-engine/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment variables still apply
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// DefaultDataDir is where file-backed state lives when nothing else is configured.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".criteria-engine"
	}
	return filepath.Join(homeDir, ".criteria-engine")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")

	// Review storage defaults
	v.SetDefault("storage.driver", domain.StorageDriverSQLite)
	v.SetDefault("storage.sqlite_path", filepath.Join(DefaultDataDir(), "review.db"))
	v.SetDefault("storage.circuit_breaker.max_requests", 3)
	v.SetDefault("storage.circuit_breaker.interval", "30s")
	v.SetDefault("storage.circuit_breaker.timeout", "10s")
	v.SetDefault("storage.circuit_breaker.failure_threshold", 5)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "criteria_engine")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "")

	// Engine defaults
	v.SetDefault("engine.window_days", 14)
	v.SetDefault("engine.diagnostic_window_days", 14)
	v.SetDefault("engine.threshold", 5)
	v.SetDefault("engine.rules_file", "")

	// Summary job defaults
	v.SetDefault("jobs.backend", domain.JobsBackendMemory)
	v.SetDefault("jobs.ttl", "30m")
	v.SetDefault("jobs.max_items", 1000)
	v.SetDefault("jobs.redis_url", "redis://localhost:6379/0")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// MCP defaults
	v.SetDefault("mcp.server_name", "criteria-engine")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetEngineConfig returns evaluation defaults
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case domain.StorageDriverNone:
	case domain.StorageDriverSQLite:
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite storage driver")
		}
	case domain.StorageDriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	if config.Engine.WindowDays <= 0 {
		return fmt.Errorf("engine window_days must be positive: %d", config.Engine.WindowDays)
	}
	if config.Engine.DiagnosticWindowDays <= 0 {
		return fmt.Errorf("engine diagnostic_window_days must be positive: %d", config.Engine.DiagnosticWindowDays)
	}
	if config.Engine.Threshold <= 0 {
		return fmt.Errorf("engine threshold must be positive: %d", config.Engine.Threshold)
	}

	switch config.Jobs.Backend {
	case domain.JobsBackendMemory:
		if config.Jobs.MaxItems <= 0 {
			return fmt.Errorf("jobs max_items must be positive: %d", config.Jobs.MaxItems)
		}
	case domain.JobsBackendRedis:
		if config.Jobs.RedisURL == "" {
			return fmt.Errorf("jobs redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid jobs backend: %s", config.Jobs.Backend)
	}
	if config.Jobs.TTL <= 0 {
		return fmt.Errorf("jobs ttl must be positive: %s", config.Jobs.TTL)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}
